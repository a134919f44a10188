package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rfp-relay-go/internal/db/dbtest"
	"rfp-relay-go/internal/models"
)

func newRepo(t *testing.T) (*Repository, *gorm.DB) {
	conn := dbtest.New(t)
	return New(conn), conn
}

func mustVendor(t *testing.T, r *Repository, name, email string) *models.Vendor {
	v := &models.Vendor{Name: name, Email: email}
	require.NoError(t, r.CreateVendor(context.Background(), v))
	return v
}

func mustRFP(t *testing.T, r *Repository, title string) *models.RFP {
	rfp := &models.RFP{
		Title:        title,
		Status:       models.RFPStatusDraft,
		Requirements: datatypes.NewJSONType(models.Requirements{}.Normalize()),
	}
	require.NoError(t, r.CreateRFP(context.Background(), rfp))
	return rfp
}

func TestVendorLifecycle(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	b := mustVendor(t, r, "Beta", "beta@example.com")
	mustVendor(t, r, "Alpha", "alpha@example.com")
	assert.NotEqual(t, uuid.Nil, b.ID)

	err := r.CreateVendor(ctx, &models.Vendor{Name: "Again", Email: "beta@example.com"})
	assert.Error(t, err)

	vendors, err := r.ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "Alpha", vendors[0].Name)

	found, err := r.FindVendorByEmail(ctx, "beta@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, b.ID, found.ID)

	missing, err := r.FindVendorByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	resolved, err := r.FindVendorsByIDs(ctx, []uuid.UUID{b.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	deleted, err := r.DeleteVendor(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = r.GetVendor(ctx, b.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	deleted, err = r.DeleteVendor(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSeedVendorsIgnoresExisting(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	seed := []models.Vendor{
		{Name: "One", Email: "one@example.com"},
		{Name: "Two", Email: "two@example.com"},
	}

	n, err := r.SeedVendors(ctx, seed)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	again := []models.Vendor{
		{Name: "One renamed", Email: "one@example.com"},
		{Name: "Two", Email: "two@example.com"},
	}
	n, err = r.SeedVendors(ctx, again)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	v, err := r.FindVendorByEmail(ctx, "one@example.com")
	require.NoError(t, err)
	assert.Equal(t, "One", v.Name)
}

func TestLatestSentRFP(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	v := mustVendor(t, r, "Acme", "acme@example.com")
	older := mustRFP(t, r, "Laptops")
	newer := mustRFP(t, r, "Monitors")

	none, err := r.LatestSentRFP(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	now := time.Now().UTC()
	require.NoError(t, r.MarkRFPSent(ctx, newer.ID, v.ID, now.Add(-time.Hour)))
	require.NoError(t, r.MarkRFPSent(ctx, older.ID, v.ID, now.Add(-2*time.Hour)))

	latest, err := r.LatestSentRFP(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	// resend moves the older RFP to the front without duplicating the link
	require.NoError(t, r.MarkRFPSent(ctx, older.ID, v.ID, now))
	latest, err = r.LatestSentRFP(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, latest.ID)

	links, err := r.ListRFPVendors(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].EmailSent)
	require.NotNil(t, links[0].Vendor)
	assert.Equal(t, "Acme", links[0].Vendor.Name)
}

func TestUpsertProposalOverwrites(t *testing.T) {
	r, conn := newRepo(t)
	ctx := context.Background()
	v := mustVendor(t, r, "Acme", "acme@example.com")
	rfp := mustRFP(t, r, "Laptops")

	price := 1000.0
	first := &models.Proposal{
		RFPID:        rfp.ID,
		VendorID:     v.ID,
		EmailSubject: "Re: RFP: Laptops",
		TotalPrice:   &price,
		AIScore:      40,
		ReceivedAt:   time.Now().UTC(),
		ParsedData:   datatypes.NewJSONType(models.ProposalDetails{Strengths: []string{"cheap"}}),
	}
	require.NoError(t, r.UpsertProposal(ctx, first))
	firstID := first.ID

	revised := 900.0
	second := &models.Proposal{
		RFPID:        rfp.ID,
		VendorID:     v.ID,
		EmailSubject: "Re: RFP: Laptops (revised)",
		TotalPrice:   &revised,
		AIScore:      75,
		ReceivedAt:   time.Now().UTC(),
	}
	require.NoError(t, r.UpsertProposal(ctx, second))
	assert.Equal(t, firstID, second.ID)
	assert.Equal(t, 75.0, second.AIScore)
	require.NotNil(t, second.TotalPrice)
	assert.Equal(t, 900.0, *second.TotalPrice)

	var count int64
	require.NoError(t, conn.Model(&models.Proposal{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	proposals, err := r.ListProposals(ctx, rfp.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	assert.Equal(t, "Re: RFP: Laptops (revised)", proposals[0].EmailSubject)
	require.NotNil(t, proposals[0].Vendor)
	assert.Equal(t, "acme@example.com", proposals[0].Vendor.Email)
}

func TestListProposalsOrderedByScore(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	rfp := mustRFP(t, r, "Chairs")
	low := mustVendor(t, r, "Low", "low@example.com")
	high := mustVendor(t, r, "High", "high@example.com")

	require.NoError(t, r.UpsertProposal(ctx, &models.Proposal{RFPID: rfp.ID, VendorID: low.ID, AIScore: 10, ReceivedAt: time.Now()}))
	require.NoError(t, r.UpsertProposal(ctx, &models.Proposal{RFPID: rfp.ID, VendorID: high.ID, AIScore: 90, ReceivedAt: time.Now()}))

	proposals, err := r.ListProposals(ctx, rfp.ID)
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	assert.Equal(t, high.ID, proposals[0].VendorID)
	assert.Equal(t, low.ID, proposals[1].VendorID)
}

func TestLogEmailOnce(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	processed, err := r.IsEmailProcessed(ctx, "<m1@example.com>")
	require.NoError(t, err)
	assert.False(t, processed)

	inserted, err := r.LogEmail(ctx, &models.EmailProcessingLog{EmailID: "<m1@example.com>", Error: "Vendor not found"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = r.LogEmail(ctx, &models.EmailProcessingLog{EmailID: "<m1@example.com>", Processed: true})
	require.NoError(t, err)
	assert.False(t, inserted)

	processed, err = r.IsEmailProcessed(ctx, "<m1@example.com>")
	require.NoError(t, err)
	assert.True(t, processed)

	logs, total, err := r.ListEmailLogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Processed)
	assert.Equal(t, "Vendor not found", logs[0].Error)

	got, err := r.GetEmailLog(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "<m1@example.com>", got.EmailID)
}

func TestDeleteRFPRemovesDependents(t *testing.T) {
	r, conn := newRepo(t)
	ctx := context.Background()
	v := mustVendor(t, r, "Acme", "acme@example.com")
	rfp := mustRFP(t, r, "Desks")
	require.NoError(t, r.MarkRFPSent(ctx, rfp.ID, v.ID, time.Now()))
	require.NoError(t, r.UpsertProposal(ctx, &models.Proposal{RFPID: rfp.ID, VendorID: v.ID, ReceivedAt: time.Now()}))

	deleted, err := r.DeleteRFP(ctx, rfp.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var links, proposals int64
	require.NoError(t, conn.Model(&models.RFPVendor{}).Count(&links).Error)
	require.NoError(t, conn.Model(&models.Proposal{}).Count(&proposals).Error)
	assert.Zero(t, links)
	assert.Zero(t, proposals)
}

func TestUpdateRFPStatusGuarded(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	rfp := mustRFP(t, r, "Phones")

	ok, err := r.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusClosed, models.RFPStatusSent)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusSent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusClosed, models.RFPStatusSent)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.GetRFP(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RFPStatusClosed, got.Status)
}
