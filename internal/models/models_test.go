package models_test

import (
	"reflect"
	"testing"

	"github.com/bquezada-bit/Silvacentinel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleCan(t *testing.T) {
	tests := []struct {
		role    models.Role
		cap     models.Capability
		allowed bool
	}{
		{models.RolePublic, models.CapAuthenticated, true},
		{models.RolePublic, models.CapManageComplaints, false},
		{models.RolePublic, models.CapManageUsers, false},
		{models.RoleRevisor, models.CapAuthenticated, true},
		{models.RoleRevisor, models.CapManageComplaints, true},
		{models.RoleRevisor, models.CapManageUsers, false},
		{models.RoleAdmin, models.CapManageComplaints, true},
		{models.RoleAdmin, models.CapManageUsers, true},
		{models.Role("superuser"), models.CapAuthenticated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+tt.cap.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.role.Can(tt.cap))
		})
	}
}

func TestAccountCan_RequiresActive(t *testing.T) {
	admin := &models.Account{Role: models.RoleAdmin, Active: false}
	assert.False(t, admin.Can(models.CapAuthenticated), "inactive accounts have no capability")

	admin.Active = true
	assert.True(t, admin.Can(models.CapManageUsers))

	var nobody *models.Account
	assert.False(t, nobody.Can(models.CapAuthenticated))
}

func TestParseStatus(t *testing.T) {
	s, ok := models.ParseStatus(" Resuelta ")
	assert.True(t, ok)
	assert.Equal(t, models.StatusResolved, s)

	_, ok = models.ParseStatus("archivada")
	assert.False(t, ok)

	_, ok = models.ParseStatus("")
	assert.False(t, ok)
}

func TestEnumValuerRejectsUndefined(t *testing.T) {
	_, err := models.Status("archivada").Value()
	assert.Error(t, err)
	_, err = models.Priority("urgente").Value()
	assert.Error(t, err)
	_, err = models.Role("root").Value()
	assert.Error(t, err)
	_, err = models.ActionKind("borrado").Value()
	assert.Error(t, err)

	v, err := models.StatusInProgress.Value()
	require.NoError(t, err)
	assert.Equal(t, "en_proceso", v)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "En Proceso", models.StatusInProgress.Label())
	assert.Equal(t, "Pendiente", models.StatusPending.Label())
	assert.Equal(t, "Alta", models.PriorityHigh.Label())
	assert.Equal(t, "Administrador", models.RoleAdmin.Label())
	assert.Equal(t, "Cambio de Estado", models.ActionStatusChange.Label())
}

func TestComplaintBeforeCreate_Defaults(t *testing.T) {
	// Arrange
	c := &models.Complaint{Title: "Tala ilegal de bosque nativo"}

	// Act
	err := c.BeforeCreate(nil)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
}

func TestComplaintBeforeCreate_PreservesValues(t *testing.T) {
	c := &models.Complaint{Status: models.StatusRejected, Priority: models.PriorityHigh}

	err := c.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusRejected, c.Status)
	assert.Equal(t, models.PriorityHigh, c.Priority)
}

func TestComplaintHelpers(t *testing.T) {
	c := &models.Complaint{}
	assert.False(t, c.HasEvidence())
	assert.Equal(t, "Sin categoría", c.CategoryName())

	url := "https://example.org/foto.jpg"
	c.EvidenceURL = &url
	c.Category = &models.Category{Name: "Fauna"}
	assert.True(t, c.HasEvidence())
	assert.Equal(t, "Fauna", c.CategoryName())
}

// TestStructTags guards the unique indexes and table names the storage layer relies on.
func TestStructTags(t *testing.T) {
	accountType := reflect.TypeOf(models.Account{})

	username, found := accountType.FieldByName("Username")
	assert.True(t, found)
	assert.Contains(t, username.Tag.Get("gorm"), "uniqueIndex")

	email, found := accountType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, email.Tag.Get("gorm"), "uniqueIndex")

	hash, found := accountType.FieldByName("PasswordHash")
	assert.True(t, found)
	assert.Equal(t, "-", hash.Tag.Get("json"), "password hash must never be serialised")

	locType := reflect.TypeOf(models.Location{})
	lat, _ := locType.FieldByName("Latitude")
	lon, _ := locType.FieldByName("Longitude")
	assert.Contains(t, lat.Tag.Get("gorm"), "uniqueIndex:idx_ubicacion_coords")
	assert.Contains(t, lon.Tag.Get("gorm"), "uniqueIndex:idx_ubicacion_coords")

	assert.Equal(t, "denuncias", models.Complaint{}.TableName())
	assert.Equal(t, "historial_denuncias", models.HistoryEntry{}.TableName())
	assert.Equal(t, "logs_actividad", models.ActivityLogEntry{}.TableName())
}
