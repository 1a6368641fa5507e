package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/fasthttp/router"
	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/services"
	xhttp "github.com/nimasrn/crowdfund/pkg/http"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

//go:embed templates/*.html
var pageFS embed.FS

const (
	featuredLimit = 6
	latestLimit   = 9
	ogDescLimit   = 200
)

type PageCampaigns interface {
	Featured(ctx context.Context, ids []int64, limit int) ([]*model.Campaign, error)
	ListPublic(ctx context.Context, f model.CampaignFilter) (model.ListResult[*model.Campaign], error)
	GetPublicBySlug(ctx context.Context, slug string) (*model.Campaign, error)
}

type PageSettings interface {
	Get(ctx context.Context) (*model.PlatformSettings, error)
}

// PageHandler renders the public HTML pages.
type PageHandler struct {
	campaigns PageCampaigns
	settings  PageSettings
	baseURL   string
	pages     map[string]*template.Template
}

type openGraph struct {
	SiteName    string
	Title       string
	Description string
	URL         string
	Image       string
}

type pageData struct {
	Title        string
	SiteName     string
	SupportEmail string
	OG           *openGraph
	Home         model.HomeContent
	Featured     []*model.Campaign
	Latest       []*model.Campaign
	Campaign     *model.Campaign
}

func RegisterPageRoutes(r *router.Router, h *PageHandler) {
	r.GET("/", h.Home)
	r.GET("/c/{slug}", h.Campaign)
}

func NewPageHandler(campaigns PageCampaigns, settings PageSettings, baseURL string) (*PageHandler, error) {
	funcs := template.FuncMap{"money": model.FormatMoney}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home.html", "campaign.html", "notfound.html"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(pageFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return &PageHandler{
		campaigns: campaigns,
		settings:  settings,
		baseURL:   strings.TrimRight(baseURL, "/"),
		pages:     pages,
	}, nil
}

func (h *PageHandler) Home(ctx *xhttp.RequestCtx) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	featured, err := h.campaigns.Featured(ctx, settings.HomeContent.FeaturedCampaignIDs, featuredLimit)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	latest, err := h.campaigns.ListPublic(ctx, model.CampaignFilter{Page: model.Page{Limit: latestLimit}})
	if err != nil {
		h.fail(ctx, err)
		return
	}

	data := h.base(settings, settings.SiteName)
	data.Home = settings.HomeContent
	data.Featured = featured
	data.Latest = latest.Items
	data.OG = &openGraph{
		SiteName:    settings.SiteName,
		Title:       settings.HomeContent.HeroTitle,
		Description: truncate(settings.HomeContent.HeroSubtitle, ogDescLimit),
		URL:         h.baseURL + "/",
	}
	h.render(ctx, xhttp.StatusOK, "home.html", data)
}

func (h *PageHandler) Campaign(ctx *xhttp.RequestCtx) {
	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	c, err := h.campaigns.GetPublicBySlug(ctx, pathString(ctx, "slug"))
	if errors.Is(err, services.ErrNotFound) {
		h.render(ctx, xhttp.StatusNotFound, "notfound.html", h.base(settings, "Not found"))
		return
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}

	data := h.base(settings, c.Title+" | "+settings.SiteName)
	data.Campaign = c
	data.OG = &openGraph{
		SiteName:    settings.SiteName,
		Title:       c.Title,
		Description: truncate(c.Description, ogDescLimit),
		URL:         h.baseURL + "/c/" + c.Slug,
		Image:       h.absolute(c.ImageURL),
	}
	h.render(ctx, xhttp.StatusOK, "campaign.html", data)
}

func (h *PageHandler) base(s *model.PlatformSettings, title string) *pageData {
	return &pageData{
		Title:        title,
		SiteName:     s.SiteName,
		SupportEmail: s.SupportEmail,
	}
}

// absolute turns a storage path such as /uploads/x.jpg into a full URL.
// Crawlers ignore relative og:image values.
func (h *PageHandler) absolute(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return h.baseURL + "/" + strings.TrimLeft(u, "/")
}

func (h *PageHandler) render(ctx *xhttp.RequestCtx, status int, name string, data *pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, name, data); err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.Response.Header.Set("Content-Type", "text/html; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(buf.Bytes())
}

func (h *PageHandler) fail(ctx *xhttp.RequestCtx, err error) {
	logger.Error("page render failed", "path", string(ctx.Path()), "error", err)
	ctx.Response.Header.Set("Content-Type", "text/plain; charset=utf-8")
	ctx.SetStatusCode(xhttp.StatusInternalServerError)
	ctx.SetBodyString(xhttp.StatusText(xhttp.StatusInternalServerError))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
