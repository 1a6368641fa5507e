package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCampaign(t *testing.T, repo *CampaignRepository, creatorID int64, title string) *model.Campaign {
	c, err := repo.Create(context.Background(), &model.Campaign{
		CreatorID:   creatorID,
		Title:       title,
		Slug:        title + "-slug",
		Description: "Description of " + title,
		Category:    "health",
		GoalAmount:  10_000,
		Currency:    "GHS",
		EndDate:     time.Now().Add(30 * 24 * time.Hour),
		Status:      model.CampaignStatusActive,
		IsApproved:  true,
	})
	require.NoError(t, err)
	return c
}

func TestCampaignRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	creator := createTestUser(t, users, "creator@example.com")
	c := createTestCampaign(t, repo, creator.ID, "School roof")

	t.Run("lookup by id and slug", func(t *testing.T) {
		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "School roof", got.Title)

		got, err = repo.GetBySlug(ctx, "School roof-slug")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})

	t.Run("duplicate title and description", func(t *testing.T) {
		exists, err := repo.ExistsWithContent(ctx, c.Title, c.Description, 0)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsWithContent(ctx, c.Title, c.Description, c.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = repo.Create(ctx, &model.Campaign{
			CreatorID:   creator.ID,
			Title:       c.Title,
			Slug:        "other-slug",
			Description: c.Description,
			Category:    "health",
			GoalAmount:  1,
			Currency:    "GHS",
			EndDate:     time.Now().Add(time.Hour),
			Status:      model.CampaignStatusPending,
		})
		assert.ErrorIs(t, err, ErrDuplicateCampaign)
	})
}

func TestCampaignRepository_List(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	creator := createTestUser(t, users, "creator@example.com")
	water := createTestCampaign(t, repo, creator.ID, "Clean Water")
	school := createTestCampaign(t, repo, creator.ID, "School books")
	hidden := createTestCampaign(t, repo, creator.ID, "Hidden water")

	_, err := repo.UpdateFields(ctx, school.ID, map[string]interface{}{"is_featured": true, "category": "education"})
	require.NoError(t, err)
	_, err = repo.UpdateFields(ctx, hidden.ID, map[string]interface{}{"is_deleted": true})
	require.NoError(t, err)

	notDeleted := false

	t.Run("search is case insensitive", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.CampaignFilter{Q: "water", IsDeleted: &notDeleted})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, water.ID, items[0].ID)
	})

	t.Run("category and featured", func(t *testing.T) {
		featured := true
		items, total, err := repo.List(ctx, model.CampaignFilter{Category: "education", Featured: &featured})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, school.ID, items[0].ID)
	})

	t.Run("creator", func(t *testing.T) {
		_, total, err := repo.List(ctx, model.CampaignFilter{CreatorID: &creator.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("newest first", func(t *testing.T) {
		items, _, err := repo.List(ctx, model.CampaignFilter{IsDeleted: &notDeleted})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, school.ID, items[0].ID)
	})

	t.Run("by ids keeps order", func(t *testing.T) {
		items, err := repo.ListByIDs(ctx, []int64{school.ID, 999, water.ID})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, school.ID, items[0].ID)
		assert.Equal(t, water.ID, items[1].ID)
	})

	t.Run("count by status", func(t *testing.T) {
		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), counts[model.CampaignStatusActive])
	})
}

func TestCampaignRepository_AddRaised(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	creator := createTestUser(t, users, "creator@example.com")
	c := createTestCampaign(t, repo, creator.ID, "Library")

	t.Run("below goal", func(t *testing.T) {
		var updated *model.Campaign
		err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			updated, err = repo.AddRaised(ctx, c.ID, 4_000)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4_000), updated.RaisedAmount)
		assert.False(t, updated.IsCompleted)
		assert.Equal(t, model.CampaignStatusActive, updated.Status)
	})

	t.Run("reaching goal completes", func(t *testing.T) {
		updated, err := repo.AddRaised(ctx, c.ID, 6_000)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000), updated.RaisedAmount)
		assert.True(t, updated.IsCompleted)
		assert.Equal(t, model.CampaignStatusCompleted, updated.Status)
	})

	t.Run("missing campaign", func(t *testing.T) {
		_, err := repo.AddRaised(ctx, 999, 1)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
}

func TestCampaignRepository_GetForUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCampaignRepository(db)
	ctx := context.Background()

	creator := createTestUser(t, NewUserRepository(db), "owner@example.com")
	c := createTestCampaign(t, repo, creator.ID, "Clinic")

	err := db.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := repo.GetForUpdate(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, locked.ID)
		assert.Equal(t, c.Slug, locked.Slug)

		_, err = repo.GetForUpdate(ctx, 999)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
		return nil
	})
	require.NoError(t, err)
}
