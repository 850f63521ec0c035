package complaint_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/storage/storagetest"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ComplaintCreated(ctx context.Context, c *models.Complaint, owner *models.Account) {
	m.Called(c.ID, owner.Username)
}

func (m *MockNotifier) StatusChanged(ctx context.Context, c *models.Complaint, from, to models.Status, actor *models.Account) {
	m.Called(c.ID, from, to, actor.Username)
}

type fixture struct {
	ctx      context.Context
	store    *storage.Service
	svc      *complaint.Service
	notifier *MockNotifier
	citizen  models.Actor
	reviewer models.Actor
	admin    models.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	s := storagetest.New(t)
	n := new(MockNotifier)
	n.On("ComplaintCreated", mock.Anything, mock.Anything).Return()
	n.On("StatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	return &fixture{
		ctx:      context.Background(),
		store:    s,
		svc:      complaint.NewService(s, evidence.NewLocalStore(t.TempDir(), "/media"), n, nil),
		notifier: n,
		citizen:  models.Actor{Account: storagetest.Account(t, s, "vecina", models.RolePublic), IP: "10.0.0.1"},
		reviewer: models.Actor{Account: storagetest.Account(t, s, "revisor", models.RoleRevisor), IP: "10.0.0.2"},
		admin:    models.Actor{Account: storagetest.Account(t, s, "admin", models.RoleAdmin), IP: "10.0.0.3"},
	}
}

func (f *fixture) create(t *testing.T) *models.Complaint {
	t.Helper()
	c, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Tala ilegal de bosque nativo",
		Description: "Se observan camiones sacando troncos de noche",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) logs(t *testing.T) []models.ActivityLogEntry {
	t.Helper()
	logs, err := f.store.ListActivity(f.ctx, storage.ActivityFilter{})
	require.NoError(t, err)
	return logs
}

func TestCreate_PendingMediumWithCreationHistory(t *testing.T) {
	// Arrange
	f := setup(t)

	// Act
	c, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Tala ilegal de bosque nativo",
		Description: "Camiones sacando troncos xx",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	assert.Equal(t, f.citizen.Account.ID, c.OwnerID)

	hist, err := f.store.ListHistory(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, models.ActionCreation, hist[0].Action)
	assert.Equal(t, "Denuncia creada: Tala ilegal de bosque nativo", hist[0].Description)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Creó denuncia: Tala ilegal de bosque nativo", logs[0].Action)
	assert.Equal(t, "10.0.0.1", logs[0].IP)

	f.notifier.AssertCalled(t, "ComplaintCreated", c.ID, "vecina")
}

func TestCreate_ShortTitleWritesNothing(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Tala nat.",
		Description: "Se observan camiones sacando troncos de noche",
	})

	ve, ok := validation.As(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Contains(t, ve.Fields, "titulo")
	n, _ := f.store.CountComplaints(f.ctx, nil)
	assert.Zero(t, n)
	assert.Empty(t, f.logs(t))
	f.notifier.AssertNotCalled(t, "ComplaintCreated", mock.Anything, mock.Anything)
}

func TestCreate_Validation(t *testing.T) {
	lat := -33.45
	tests := []struct {
		name  string
		in    complaint.CreateInput
		field string
	}{
		{"short description", complaint.CreateInput{Title: "Vertido en el estero", Description: "muy corta"}, "descripcion"},
		{"long title", complaint.CreateInput{Title: strings.Repeat("a", 201), Description: strings.Repeat("d", 20)}, "titulo"},
		{"bad url", complaint.CreateInput{Title: "Vertido en el estero", Description: strings.Repeat("d", 20), EvidenceURL: "no es url"}, "evidencia_url"},
		{"unknown category", complaint.CreateInput{Title: "Vertido en el estero", Description: strings.Repeat("d", 20), CategoryID: ptr(uint(999))}, "categoria"},
		{"latitude without longitude", complaint.CreateInput{Title: "Vertido en el estero", Description: strings.Repeat("d", 20), Latitude: &lat}, "latitud"},
		{"bad evidence", complaint.CreateInput{Title: "Vertido en el estero", Description: strings.Repeat("d", 20), Evidence: &evidence.Upload{Name: "x.exe", Size: 1, Body: strings.NewReader("x")}}, "evidencia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)

			_, err := f.svc.Create(f.ctx, f.citizen, tt.in)

			ve, ok := validation.As(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, ve.Fields, tt.field)
			n, _ := f.store.CountComplaints(f.ctx, nil)
			assert.Zero(t, n)
		})
	}
}

func TestCreate_WithLocationAndEvidence(t *testing.T) {
	f := setup(t)
	lat, lng := -39.8142, -73.2459
	cats, err := f.store.ListCategories(f.ctx)
	require.NoError(t, err)

	c, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:               "Relleno ilegal del humedal Angachilla",
		Description:         "Camiones depositan escombros en el humedal urbano",
		CategoryID:          &cats[0].ID,
		Latitude:            &lat,
		Longitude:           &lng,
		LocationDescription: "Humedal Angachilla, Valdivia",
		Evidence:            &evidence.Upload{Name: "foto.jpg", Size: 4, Body: strings.NewReader("jpeg")},
	})

	require.NoError(t, err)
	require.NotNil(t, c.LocationID)
	require.NotNil(t, c.EvidenceFile)
	assert.True(t, strings.HasPrefix(*c.EvidenceFile, "evidencias/"))

	again, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Nuevo relleno en el mismo humedal",
		Description: "Otra vez camiones con escombros en el lugar",
		Latitude:    &lat,
		Longitude:   &lng,
	})
	require.NoError(t, err)
	assert.Equal(t, *c.LocationID, *again.LocationID, "same coordinates share one location")
}

func TestCreate_InactiveAccountForbidden(t *testing.T) {
	f := setup(t)
	f.citizen.Account.Active = false

	_, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Tala ilegal de bosque nativo",
		Description: "Se observan camiones sacando troncos de noche",
	})

	assert.ErrorIs(t, err, complaint.ErrForbidden)
}

func TestOwnerEdit_PendingOnly(t *testing.T) {
	f := setup(t)
	c := f.create(t)

	edited, err := f.svc.OwnerEdit(f.ctx, f.citizen, c.ID, complaint.OwnerEditInput{
		Title:       "Tala ilegal de bosque nativo en Pucón",
		Description: c.Description,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tala ilegal de bosque nativo en Pucón", edited.Title)
	assert.Equal(t, models.StatusPending, edited.Status)

	hist, err := f.store.ListHistory(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.ActionEdit, hist[0].Action)
	assert.Contains(t, hist[0].Description, "título")

	_, err = f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "en_proceso")
	require.NoError(t, err)

	_, err = f.svc.OwnerEdit(f.ctx, f.citizen, c.ID, complaint.OwnerEditInput{
		Title:       "Intento de edición tardía",
		Description: c.Description,
	})
	assert.ErrorIs(t, err, complaint.ErrNotPending)
}

func TestOwnerEdit_OtherOwnerSeesNotFound(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	intruder := models.Actor{Account: storagetest.Account(t, f.store, "intruso", models.RolePublic)}

	_, err := f.svc.OwnerEdit(f.ctx, intruder, c.ID, complaint.OwnerEditInput{
		Title:       "Título cambiado por otro",
		Description: c.Description,
	})

	assert.ErrorIs(t, err, complaint.ErrNotFound)
}

func TestOwnerEdit_NoChanges(t *testing.T) {
	f := setup(t)
	c := f.create(t)

	_, err := f.svc.OwnerEdit(f.ctx, f.citizen, c.ID, complaint.OwnerEditInput{
		Title:       c.Title,
		Description: c.Description,
	})

	assert.ErrorIs(t, err, complaint.ErrNoChanges)
	hist, _ := f.store.ListHistory(f.ctx, c.ID)
	assert.Len(t, hist, 1)
}

func TestOwnerDelete(t *testing.T) {
	f := setup(t)
	c := f.create(t)

	require.NoError(t, f.svc.OwnerDelete(f.ctx, f.citizen, c.ID))

	_, err := f.store.GetComplaint(f.ctx, c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	hist, _ := f.store.ListHistory(f.ctx, c.ID)
	assert.Empty(t, hist)
	assert.Equal(t, "Eliminó su denuncia: Tala ilegal de bosque nativo", f.logs(t)[0].Action)
}

func TestOwnerDelete_ResolvedRefused(t *testing.T) {
	// Arrange
	f := setup(t)
	c := f.create(t)
	_, err := f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "resuelta")
	require.NoError(t, err)
	histBefore, _ := f.store.ListHistory(f.ctx, c.ID)

	// Act
	err = f.svc.OwnerDelete(f.ctx, f.citizen, c.ID)

	// Assert
	assert.ErrorIs(t, err, complaint.ErrNotPending)
	got, err := f.store.GetComplaint(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	histAfter, _ := f.store.ListHistory(f.ctx, c.ID)
	assert.Len(t, histAfter, len(histBefore))
}

func TestChangeStatus_WritesHistoryAndLog(t *testing.T) {
	// Arrange
	f := setup(t)
	c := f.create(t)
	logsBefore := len(f.logs(t))

	// Act
	updated, err := f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "resuelta")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)

	hist, err := f.store.ListHistory(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, models.ActionStatusChange, hist[0].Action)
	assert.Equal(t, "Estado: pendiente → resuelta", hist[0].Description)
	require.NotNil(t, hist[0].ActorID)
	assert.Equal(t, f.reviewer.Account.ID, *hist[0].ActorID)
	assert.False(t, hist[0].CreatedAt.Before(hist[1].CreatedAt))

	logs := f.logs(t)
	require.Len(t, logs, logsBefore+1)
	assert.Equal(t, "Cambió estado de denuncia #"+itoa(c.ID)+" a resuelta", logs[0].Action)

	f.notifier.AssertCalled(t, "StatusChanged", c.ID, models.StatusPending, models.StatusResolved, "revisor")
}

func TestChangeStatus_Rejections(t *testing.T) {
	f := setup(t)
	c := f.create(t)

	_, err := f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "archivada")
	assert.ErrorIs(t, err, complaint.ErrInvalidStatus)

	_, err = f.svc.ChangeStatus(f.ctx, f.citizen, c.ID, "resuelta")
	assert.ErrorIs(t, err, complaint.ErrForbidden)

	_, err = f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "pendiente")
	assert.ErrorIs(t, err, complaint.ErrNoChanges)

	_, err = f.svc.ChangeStatus(f.ctx, f.admin, 4242, "resuelta")
	assert.ErrorIs(t, err, complaint.ErrNotFound)

	got, _ := f.store.GetComplaint(f.ctx, c.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	hist, _ := f.store.ListHistory(f.ctx, c.ID)
	assert.Len(t, hist, 1)
}

func TestStaffEdit_ReportsEveryChangedField(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	cats, err := f.store.ListCategories(f.ctx)
	require.NoError(t, err)

	updated, err := f.svc.StaffEdit(f.ctx, f.admin, c.ID, complaint.StaffEditInput{
		Title:       "Tala ilegal de bosque nativo (verificada)",
		Description: c.Description,
		CategoryID:  &cats[0].ID,
		Status:      "en_proceso",
		Priority:    "alta",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)

	hist, err := f.store.ListHistory(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	desc := hist[0].Description
	assert.Contains(t, desc, "Título: Tala ilegal de bosque nativo → Tala ilegal de bosque nativo (verificada)")
	assert.Contains(t, desc, "Categoría: Sin categoría → "+cats[0].Name)
	assert.Contains(t, desc, "Estado: pendiente → en_proceso")
	assert.Contains(t, desc, "Prioridad: media → alta")
	assert.Equal(t, 3, strings.Count(desc, ", "))

	assert.Equal(t, "Editó denuncia #"+itoa(c.ID)+": Tala ilegal de bosque nativo (verificada)", f.logs(t)[0].Action)
}

func TestStaffEdit_TitleOnlyStillRecorded(t *testing.T) {
	f := setup(t)
	c := f.create(t)

	_, err := f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, complaint.StaffEditInput{
		Title:       "Título corregido por revisión",
		Description: c.Description,
		Status:      string(c.Status),
		Priority:    string(c.Priority),
	})

	require.NoError(t, err)
	hist, _ := f.store.ListHistory(f.ctx, c.ID)
	require.Len(t, hist, 2)
	assert.True(t, strings.HasPrefix(hist[0].Description, "Título: "))
}

func TestStaffEdit_WithoutCategoryKeepsCurrent(t *testing.T) {
	// Arrange
	f := setup(t)
	cats, err := f.store.ListCategories(f.ctx)
	require.NoError(t, err)
	c, err := f.svc.Create(f.ctx, f.citizen, complaint.CreateInput{
		Title:       "Vertido de aceite en el estero",
		Description: "Mancha oscura en el agua cerca del puente",
		CategoryID:  &cats[0].ID,
	})
	require.NoError(t, err)

	// Act
	_, err = f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, complaint.StaffEditInput{
		Title:       c.Title,
		Description: c.Description,
		Status:      "en_proceso",
		Priority:    string(c.Priority),
	})

	// Assert
	require.NoError(t, err)
	got, err := f.store.GetComplaint(f.ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, cats[0].ID, *got.CategoryID)
	hist, _ := f.store.ListHistory(f.ctx, c.ID)
	require.Len(t, hist, 2)
	assert.Equal(t, "Estado: pendiente → en_proceso", hist[0].Description)
}

func TestStaffEdit_Rejections(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	base := complaint.StaffEditInput{Title: c.Title, Description: c.Description, Status: "pendiente", Priority: "media"}

	_, err := f.svc.StaffEdit(f.ctx, f.citizen, c.ID, base)
	assert.ErrorIs(t, err, complaint.ErrForbidden)

	bad := base
	bad.Priority = "urgente"
	_, err = f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, bad)
	assert.ErrorIs(t, err, complaint.ErrInvalidPriority)

	bad = base
	bad.Status = "cerrada"
	_, err = f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, bad)
	assert.ErrorIs(t, err, complaint.ErrInvalidStatus)

	bad = base
	bad.Description = strings.Repeat("x", 2001)
	_, err = f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, bad)
	_, ok := validation.As(err)
	assert.True(t, ok)

	_, err = f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, base)
	assert.ErrorIs(t, err, complaint.ErrNoChanges)
}

func TestStaffEdit_AnyStatus(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	_, err := f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "rechazada")
	require.NoError(t, err)

	updated, err := f.svc.StaffEdit(f.ctx, f.reviewer, c.ID, complaint.StaffEditInput{
		Title: c.Title, Description: c.Description, Status: "en_proceso", Priority: "baja",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestHistoryAndListings(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	_, err := f.svc.ChangeStatus(f.ctx, f.reviewer, c.ID, "en_proceso")
	require.NoError(t, err)

	_, _, err = f.svc.History(f.ctx, f.citizen, c.ID)
	assert.ErrorIs(t, err, complaint.ErrForbidden)

	got, hist, err := f.svc.History(f.ctx, f.reviewer, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	require.Len(t, hist, 2)
	assert.Equal(t, models.ActionStatusChange, hist[0].Action)
	assert.Equal(t, models.ActionCreation, hist[1].Action)

	own, err := f.svc.ListOwn(f.ctx, f.citizen)
	require.NoError(t, err)
	assert.Len(t, own, 1)
	own, err = f.svc.ListOwn(f.ctx, f.reviewer)
	require.NoError(t, err)
	assert.Empty(t, own)

	_, err = f.svc.ListAll(f.ctx, f.citizen, storage.ComplaintFilter{})
	assert.ErrorIs(t, err, complaint.ErrForbidden)
	all, err := f.svc.ListAll(f.ctx, f.admin, storage.ComplaintFilter{Status: models.StatusInProgress})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.svc.Get(f.ctx, models.Actor{Account: storagetest.Account(t, f.store, "otra", models.RolePublic)}, c.ID)
	assert.ErrorIs(t, err, complaint.ErrNotFound)
	_, err = f.svc.Get(f.ctx, f.reviewer, c.ID)
	assert.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func itoa(id uint) string {
	return fmt.Sprint(id)
}
