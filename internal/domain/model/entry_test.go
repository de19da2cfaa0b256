package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategories_FirstAppearanceOrder(t *testing.T) {
	entries := []Entry{
		{Category: "mail", Key: "FROM"},
		{Category: "db", Key: "HOST"},
		{Category: "mail", Key: "HOST"},
		{Category: "", Key: "ORPHAN"},
	}

	assert.Equal(t, []string{"mail", "db", ""}, Categories(entries))
}

func TestCategories_Empty(t *testing.T) {
	got := Categories(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSnapshot_InCategoryAndFind(t *testing.T) {
	s := NewSnapshot([]Entry{
		{Category: "db", Key: "HOST", Value: "a"},
		{Category: "mail", Key: "FROM", Value: "b"},
		{Category: "db", Key: "PORT", Value: "c"},
	})

	db := s.InCategory("db")
	assert.Len(t, db, 2)
	assert.Equal(t, "PORT", db[1].Key)
	assert.Empty(t, s.InCategory("missing"))

	got, ok := s.Find("mail", "FROM")
	assert.True(t, ok)
	assert.Equal(t, "b", got.Value)

	_, ok = s.Find("mail", "HOST")
	assert.False(t, ok)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{LastSeenAt: now.Add(-2 * time.Hour)}

	assert.True(t, s.Expired(now, time.Hour))
	assert.False(t, s.Expired(now, 3*time.Hour))
	assert.False(t, s.Expired(now, 0), "zero ttl disables expiry")
}

func TestView_Valid(t *testing.T) {
	assert.True(t, ViewManager.Valid())
	assert.True(t, ViewTree.Valid())
	assert.False(t, View("").Valid())
}
