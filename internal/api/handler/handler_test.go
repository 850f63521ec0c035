package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/evidence"
	"github.com/bquezada-bit/Silvacentinel/internal/inaturalist"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/storage/storagetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, page int) *inaturalist.Result {
	args := m.Called(query, page)
	return args.Get(0).(*inaturalist.Result)
}

type fixture struct {
	store    *storage.Service
	h        *Handler
	router   *gin.Engine
	searcher *MockSearcher
	citizen  *models.Account
	reviewer *models.Account
	admin    *models.Account
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := storagetest.New(t)
	searcher := new(MockSearcher)
	h := NewHandler(Deps{
		Storage:      s,
		Evidence:     evidence.NewLocalStore(t.TempDir(), "/media"),
		Observations: searcher,
		Session: config.SessionConfig{
			Secret:      "test-secret",
			TTL:         time.Hour,
			RememberTTL: 24 * time.Hour,
		},
	})
	return &fixture{
		store:    s,
		h:        h,
		router:   NewRouter(h, RouterOptions{CORSOrigins: []string{"*"}}),
		searcher: searcher,
		citizen:  storagetest.Account(t, s, "vecina", models.RolePublic),
		reviewer: storagetest.Account(t, s, "revisor", models.RoleRevisor),
		admin:    storagetest.Account(t, s, "admin", models.RoleAdmin),
	}
}

func (f *fixture) sessionFor(t *testing.T, a *models.Account) *http.Cookie {
	t.Helper()
	token, _, err := f.h.Sessions.Issue(a.ID, false)
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (f *fixture) do(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) complaint(t *testing.T, owner *models.Account, title string, status models.Status) *models.Complaint {
	t.Helper()
	c := &models.Complaint{
		OwnerID:     owner.ID,
		Title:       title,
		Description: "Descripción suficientemente larga del problema",
		Status:      status,
	}
	require.NoError(t, f.store.CreateComplaint(context.Background(), c))
	return c
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func flashNotices(t *testing.T, w *httptest.ResponseRecorder) []Notice {
	t.Helper()
	c := responseCookie(w, flashCookie)
	require.NotNil(t, c, "no flash cookie set")
	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	require.NoError(t, err)
	var list []Notice
	require.NoError(t, json.Unmarshal(data, &list))
	return list
}

func TestGuard(t *testing.T) {
	f := setup(t)

	t.Run("anonymous goes to login", func(t *testing.T) {
		w := f.do(http.MethodGet, "/mis-denuncias/", nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login/", w.Header().Get("Location"))
		notices := flashNotices(t, w)
		require.Len(t, notices, 1)
		assert.Equal(t, LevelWarning, notices[0].Level)
	})

	t.Run("citizen cannot manage complaints", func(t *testing.T) {
		w := f.do(http.MethodGet, "/gestion-denuncias/", nil, f.sessionFor(t, f.citizen))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Equal(t, "No tienes permisos para acceder a esta página.", flashNotices(t, w)[0].Message)
	})

	t.Run("reviewer cannot manage accounts", func(t *testing.T) {
		w := f.do(http.MethodGet, "/gestionar-usuarios/", nil, f.sessionFor(t, f.reviewer))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("inactive account is treated as anonymous", func(t *testing.T) {
		inactive := storagetest.Account(t, f.store, "dormida", models.RolePublic)
		inactive.Active = false
		require.NoError(t, f.store.UpdateAccount(context.Background(), inactive))

		w := f.do(http.MethodGet, "/perfil/", nil, f.sessionFor(t, inactive))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login/", w.Header().Get("Location"))
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		cookie := f.sessionFor(t, f.admin)
		cookie.Value += "x"

		w := f.do(http.MethodGet, "/logs/", nil, cookie)

		assert.Equal(t, "/login/", w.Header().Get("Location"))
	})

	t.Run("admin reaches the dashboard", func(t *testing.T) {
		byRole, err := f.store.CountAccountsByRole(context.Background())
		require.NoError(t, err)
		var accounts int64
		for _, n := range byRole {
			accounts += n
		}

		w := f.do(http.MethodGet, "/estadisticas/", nil, f.sessionFor(t, f.admin))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total_usuarios":`+strconv.FormatInt(accounts, 10))
	})
}

func TestLogin(t *testing.T) {
	f := setup(t)

	t.Run("valid credentials start a session", func(t *testing.T) {
		// Arrange
		form := url.Values{"username": {"vecina"}, "password": {storagetest.Password}, "next": {"/mis-denuncias/"}}

		// Act
		w := f.do(http.MethodPost, "/login/", form)

		// Assert
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/mis-denuncias/", w.Header().Get("Location"))
		cookie := responseCookie(w, sessionCookie)
		require.NotNil(t, cookie)
		sess, err := f.h.Sessions.Parse(cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, f.citizen.ID, sess.AccountID)

		logs, err := f.store.ListActivity(context.Background(), storage.ActivityFilter{ActorID: &f.citizen.ID})
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "Inicio de sesión", logs[0].Action)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := f.do(http.MethodPost, "/login/", url.Values{"username": {"vecina"}, "password": {"otra1234"}})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, responseCookie(w, sessionCookie))
		assert.Contains(t, w.Body.String(), "Usuario o contraseña incorrectos.")
	})

	t.Run("open redirect is ignored", func(t *testing.T) {
		form := url.Values{"username": {"vecina"}, "password": {storagetest.Password}, "next": {"//evil.example"}}

		w := f.do(http.MethodPost, "/login/", form)

		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestLogout(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/logout/", url.Values{}, f.sessionFor(t, f.citizen))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	cookie := responseCookie(w, sessionCookie)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Contains(t, flashNotices(t, w)[0].Message, "vecina")
}

func TestRegister(t *testing.T) {
	f := setup(t)

	t.Run("creates a public account", func(t *testing.T) {
		form := url.Values{
			"username":         {"guardaparque_1"},
			"email":            {"guarda@silva.cl"},
			"telefono":         {"+56 9 1234-5678"},
			"password":         {"araucaria9"},
			"password_confirm": {"araucaria9"},
		}

		w := f.do(http.MethodPost, "/registro/", form)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login/", w.Header().Get("Location"))
		a, err := f.store.GetAccountByUsername(context.Background(), "guardaparque_1")
		require.NoError(t, err)
		assert.Equal(t, models.RolePublic, a.Role)
	})

	t.Run("duplicate username is a field error", func(t *testing.T) {
		form := url.Values{
			"username":         {"vecina"},
			"email":            {"nueva@silva.cl"},
			"password":         {"araucaria9"},
			"password_confirm": {"araucaria9"},
		}

		w := f.do(http.MethodPost, "/registro/", form)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body struct {
			Errors map[string]string `json:"errores"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Este nombre de usuario ya está en uso.", body.Errors["username"])
	})
}

func TestCreateComplaint(t *testing.T) {
	f := setup(t)
	session := f.sessionFor(t, f.citizen)

	t.Run("valid form", func(t *testing.T) {
		// Arrange
		form := url.Values{
			"titulo":      {"Tala ilegal de bosque nativo"},
			"descripcion": {"Corta de coigües en la ladera"},
			"categoria":   {""},
			"latitud":     {"-39.8142"},
			"longitud":    {"-73.2459"},
		}

		// Act
		w := f.do(http.MethodPost, "/crear-denuncia/", form, session)

		// Assert
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, myComplaints, w.Header().Get("Location"))
		list, err := f.store.ListComplaints(context.Background(), storage.ComplaintFilter{OwnerID: &f.citizen.ID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, models.StatusPending, list[0].Status)
		assert.Equal(t, models.PriorityMedium, list[0].Priority)
		assert.Nil(t, list[0].CategoryID)
		require.NotNil(t, list[0].Location)
		assert.InDelta(t, -39.8142, list[0].Location.Latitude, 1e-9)
	})

	t.Run("short title is rejected", func(t *testing.T) {
		form := url.Values{
			"titulo":      {"Tala mala"},
			"descripcion": {"Corta de coigües en la ladera"},
		}

		w := f.do(http.MethodPost, "/crear-denuncia/", form, session)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `"titulo"`)
		n, err := f.store.CountComplaints(context.Background(), &f.citizen.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("non numeric latitude", func(t *testing.T) {
		form := url.Values{
			"titulo":      {"Vertido en el estero Las Ánimas"},
			"descripcion": {"Agua de color café y olor a químicos"},
			"latitud":     {"norte"},
		}

		w := f.do(http.MethodPost, "/crear-denuncia/", form, session)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `"latitud"`)
	})
}

func TestOwnerPages(t *testing.T) {
	f := setup(t)
	session := f.sessionFor(t, f.citizen)

	t.Run("resolved complaint cannot be deleted", func(t *testing.T) {
		c := f.complaint(t, f.citizen, "Incendio en el cerro Ñielol", models.StatusResolved)

		w := f.do(http.MethodPost, "/eliminar-mi-denuncia/"+itoa(c.ID)+"/", url.Values{}, session)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "No puedes eliminar una denuncia que ya fue procesada.", flashNotices(t, w)[0].Message)
		_, err := f.store.GetComplaint(context.Background(), c.ID)
		assert.NoError(t, err)
	})

	t.Run("pending complaint is deleted", func(t *testing.T) {
		c := f.complaint(t, f.citizen, "Microbasural junto al humedal", models.StatusPending)

		w := f.do(http.MethodPost, "/eliminar-mi-denuncia/"+itoa(c.ID)+"/", url.Values{}, session)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		_, err := f.store.GetComplaint(context.Background(), c.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("someone else's complaint is not found", func(t *testing.T) {
		other := storagetest.Account(t, f.store, "vecino", models.RolePublic)
		c := f.complaint(t, other, "Caza furtiva de pudúes en la reserva", models.StatusPending)

		w := f.do(http.MethodGet, "/editar-mi-denuncia/"+itoa(c.ID)+"/", nil, session)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("listing carries counters", func(t *testing.T) {
		w := f.do(http.MethodGet, myComplaints, nil, session)

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Complaints []complaintView `json:"denuncias"`
			Counters   struct {
				Total    int64 `json:"total"`
				Resolved int64 `json:"resueltas"`
			} `json:"contadores"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Complaints, 1)
		assert.EqualValues(t, 1, body.Counters.Total)
		assert.EqualValues(t, 1, body.Counters.Resolved)
	})
}

func TestStaffStatusChange(t *testing.T) {
	f := setup(t)
	c := f.complaint(t, f.citizen, "Vertido de aceite en el río Calle-Calle", models.StatusPending)

	t.Run("reviewer resolves", func(t *testing.T) {
		w := f.do(http.MethodPost, "/cambiar-estado/"+itoa(c.ID)+"/", url.Values{"estado": {"resuelta"}}, f.sessionFor(t, f.reviewer))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, manageComplaints, w.Header().Get("Location"))
		assert.Equal(t, "Estado cambiado a Resuelta", flashNotices(t, w)[0].Message)

		got, err := f.store.GetComplaint(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusResolved, got.Status)
	})

	t.Run("undefined status", func(t *testing.T) {
		w := f.do(http.MethodPost, "/cambiar-estado/"+itoa(c.ID)+"/", url.Values{"estado": {"archivada"}}, f.sessionFor(t, f.reviewer))

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Estado inválido", flashNotices(t, w)[0].Message)
	})

	t.Run("history lists both entries", func(t *testing.T) {
		w := f.do(http.MethodGet, "/historial-denuncia/"+itoa(c.ID)+"/", nil, f.sessionFor(t, f.admin))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Estado: pendiente → resuelta")
	})

	t.Run("missing complaint", func(t *testing.T) {
		w := f.do(http.MethodGet, "/editar-denuncia/9999/", nil, f.sessionFor(t, f.reviewer))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminAccounts(t *testing.T) {
	f := setup(t)
	session := f.sessionFor(t, f.admin)

	t.Run("admin cannot deactivate self", func(t *testing.T) {
		w := f.do(http.MethodPost, "/activar-desactivar/"+itoa(f.admin.ID)+"/", url.Values{}, session)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "No puedes desactivar tu propia cuenta.", flashNotices(t, w)[0].Message)
		got, err := f.store.GetAccountByID(context.Background(), f.admin.ID)
		require.NoError(t, err)
		assert.True(t, got.Active)
	})

	t.Run("promote citizen", func(t *testing.T) {
		w := f.do(http.MethodPost, "/cambiar-rol/"+itoa(f.citizen.ID)+"/", url.Values{"rol": {"revisor"}}, session)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "Rol de vecina cambiado a Revisor", flashNotices(t, w)[0].Message)
	})

	t.Run("logs filtered by account", func(t *testing.T) {
		w := f.do(http.MethodGet, "/logs/?usuario="+itoa(f.admin.ID), nil, session)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Cambió rol de vecina")
		assert.Contains(t, w.Body.String(), `"en_vivo":false`)
	})

	t.Run("live feed disabled without redis", func(t *testing.T) {
		w := f.do(http.MethodGet, "/ws/actividad/", nil, session)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPublicAPI(t *testing.T) {
	f := setup(t)
	long := strings.Repeat("a", 120)
	c := &models.Complaint{OwnerID: f.citizen.ID, Title: "Humo negro de la fundición", Description: long, Priority: models.PriorityHigh}
	require.NoError(t, f.store.CreateComplaint(context.Background(), c))

	t.Run("list", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/denuncias/lista/", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var rows []apiComplaint
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, strings.Repeat("a", 100)+"...", rows[0].Description)
		assert.Equal(t, "Pendiente", rows[0].Status)
		assert.Equal(t, "Alta", rows[0].Priority)
		assert.Equal(t, "Sin categoría", rows[0].Category)
		assert.Equal(t, "vecina", rows[0].Owner)
		_, err := time.Parse(dateTimeLayout, rows[0].CreatedAt)
		assert.NoError(t, err)
	})

	t.Run("stats", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/denuncias/estadisticas/", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total_denuncias":1,
			"por_estado":{"pendientes":1,"en_proceso":0,"resueltas":0,"rechazadas":0},
			"por_prioridad":{"baja":0,"media":0,"alta":1}}`, w.Body.String())
	})

	t.Run("cors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/denuncias/recientes/", nil)
		req.Header.Set("Origin", "https://mapa.example")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestBiodiversity(t *testing.T) {
	f := setup(t)
	f.searcher.On("Search", "Valdivia", 2).Return(&inaturalist.Result{
		Query: "Valdivia",
		Page:  2,
		Flora: []inaturalist.Species{{CommonName: "Alerce", Group: "flora"}},
	})

	w := f.do(http.MethodGet, "/pagina3/?ubicacion=Valdivia&page=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alerce")
	f.searcher.AssertExpectations(t)
}

func TestFlashIsConsumedByNextView(t *testing.T) {
	f := setup(t)
	redirect := f.do(http.MethodGet, "/perfil/", nil)
	flash := responseCookie(redirect, flashCookie)
	require.NotNil(t, flash)

	w := f.do(http.MethodGet, "/", nil, flash)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notices []Notice `json:"notices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notices, 1)
	assert.Equal(t, "Debes iniciar sesión para acceder a esta página.", body.Notices[0].Message)
	cleared := responseCookie(w, flashCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
