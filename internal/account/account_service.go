// Package account handles registration, login and the admin operations on
// accounts (role changes and activation).
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/config"
	"github.com/bquezada-bit/Silvacentinel/internal/metrics"
	"github.com/bquezada-bit/Silvacentinel/internal/models"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"
	"github.com/bquezada-bit/Silvacentinel/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("usuario o contraseña incorrectos")
	ErrInactive           = errors.New("cuenta desactivada")
	ErrTooManyAttempts    = errors.New("demasiados intentos de inicio de sesión")
	ErrForbidden          = errors.New("no tienes permisos para esta acción")
	ErrNotFound           = errors.New("usuario no encontrado")
	ErrInvalidRole        = errors.New("rol inválido")
	ErrSelfDeactivate     = errors.New("no puedes desactivar tu propia cuenta")
	ErrUsernameTaken      = errors.New("Este nombre de usuario ya está en uso.")
	ErrEmailTaken         = errors.New("Este correo ya está registrado.")
)

type Service struct {
	Storage storage.Storage
	Log     *zap.Logger
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

func NewService(s storage.Storage, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Storage: s, Log: log}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username        string `form:"username" validate:"required,min=4,max=150,username"`
	Email           string `form:"email" validate:"required,email,max=254"`
	FirstName       string `form:"first_name" validate:"max=150"`
	LastName        string `form:"last_name" validate:"max=150"`
	Phone           string `form:"telefono" validate:"omitempty,cl_phone"`
	Password        string `form:"password" validate:"required,min=8,password_strength"`
	PasswordConfirm string `form:"password_confirm" validate:"required,eqfield=Password"`
}

// Register creates an active public account. The role cannot be chosen.
func (s *Service) Register(ctx context.Context, in RegisterInput, ip string) (*models.Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = validation.NormalizePhone(in.Phone)

	if err := validation.Struct(in); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &models.Account{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hash),
		Role:         models.RolePublic,
		Active:       true,
	}
	if in.Phone != "" {
		a.Phone = &in.Phone
	}

	err = s.Storage.InTx(ctx, func(tx storage.Storage) error {
		if taken, err := tx.UsernameExists(ctx, a.Username); err != nil {
			return err
		} else if taken {
			return validation.Wrap("username", ErrUsernameTaken)
		}
		if taken, err := tx.EmailExists(ctx, a.Email); err != nil {
			return err
		} else if taken {
			return validation.Wrap("email", ErrEmailTaken)
		}

		if err := tx.CreateAccount(ctx, a); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return tx.AppendActivity(ctx, &models.ActivityLogEntry{
			ActorID: &a.ID,
			Actor:   a,
			Action:  "Registro de nueva cuenta",
			IP:      ip,
		})
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.Log.Info("account registered", zap.Uint("account_id", a.ID), zap.String("username", a.Username))
	return a, nil
}

// Login checks the credentials. With Redis configured, attempts are capped
// per ip within config.LoginWindow.
func (s *Service) Login(ctx context.Context, username, password, ip string) (*models.Account, error) {
	attempts, err := s.Storage.HitLoginAttempt(ctx, ip, config.LoginWindow)
	if err != nil {
		s.Log.Warn("login rate limiter unavailable", zap.Error(err))
	}
	if attempts > config.LoginMaxAttempts {
		metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
		return nil, ErrTooManyAttempts
	}

	a, err := s.Storage.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		return nil, ErrInvalidCredentials
	}
	if !a.Active {
		metrics.LoginAttemptsTotal.WithLabelValues("inactive").Inc()
		return nil, ErrInactive
	}

	now := time.Now().UTC()
	a.LastLoginAt = &now
	err = s.Storage.InTx(ctx, func(tx storage.Storage) error {
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		return tx.AppendActivity(ctx, &models.ActivityLogEntry{ActorID: &a.ID, Actor: a, Action: "Inicio de sesión", IP: ip})
	})
	if err != nil {
		return nil, err
	}

	if err := s.Storage.ResetLoginAttempts(ctx, ip); err != nil {
		s.Log.Warn("reset login attempts", zap.Error(err))
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return a, nil
}

// Logout records the end of the session.
func (s *Service) Logout(ctx context.Context, actor models.Actor) error {
	if actor.Account == nil {
		return nil
	}
	return s.Storage.AppendActivity(ctx, &models.ActivityLogEntry{
		ActorID: actor.ID(),
		Actor:   actor.Account,
		Action:  "Cierre de sesión",
		IP:      actor.IP,
	})
}

// ProfileInput is the editable part of the actor's own profile.
type ProfileInput struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Phone     string `form:"telefono" validate:"omitempty,cl_phone"`
}

// UpdateProfile changes names and phone of the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actor models.Actor, in ProfileInput) (*models.Account, error) {
	if !actor.Can(models.CapAuthenticated) {
		return nil, ErrForbidden
	}
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = validation.NormalizePhone(in.Phone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	a := actor.Account
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.Phone = nil
	if in.Phone != "" {
		a.Phone = &in.Phone
	}
	if err := s.Storage.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List is the admin user management listing.
func (s *Service) List(ctx context.Context, actor models.Actor, f storage.AccountFilter) ([]storage.AccountRow, error) {
	if !actor.Can(models.CapManageUsers) {
		return nil, ErrForbidden
	}
	return s.Storage.ListAccounts(ctx, f)
}

// ChangeRole sets the role of another account. raw must be a persisted
// role value.
func (s *Service) ChangeRole(ctx context.Context, actor models.Actor, targetID uint, raw string) (*models.Account, error) {
	if !actor.Can(models.CapManageUsers) {
		return nil, ErrForbidden
	}
	role, ok := models.ParseRole(raw)
	if !ok {
		return nil, ErrInvalidRole
	}

	var target *models.Account
	err := s.Storage.InTx(ctx, func(tx storage.Storage) error {
		var err error
		target, err = tx.GetAccountByID(ctx, targetID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		before := target.Role
		target.Role = role
		if err := tx.UpdateAccount(ctx, target); err != nil {
			return err
		}
		return tx.AppendActivity(ctx, &models.ActivityLogEntry{
			ActorID: actor.ID(),
			Actor:   actor.Account,
			Action:  fmt.Sprintf("Cambió rol de %s de %s a %s", target.Username, before.Label(), role.Label()),
			IP:      actor.IP,
		})
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ToggleActive flips the active flag of another account. An admin cannot
// deactivate themself.
func (s *Service) ToggleActive(ctx context.Context, actor models.Actor, targetID uint) (*models.Account, error) {
	if !actor.Can(models.CapManageUsers) {
		return nil, ErrForbidden
	}
	if actor.Account.ID == targetID {
		return nil, ErrSelfDeactivate
	}

	var target *models.Account
	err := s.Storage.InTx(ctx, func(tx storage.Storage) error {
		var err error
		target, err = tx.GetAccountByID(ctx, targetID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		target.Active = !target.Active
		if err := tx.UpdateAccount(ctx, target); err != nil {
			return err
		}
		verb := "Desactivó"
		if target.Active {
			verb = "Activó"
		}
		return tx.AppendActivity(ctx, &models.ActivityLogEntry{
			ActorID: actor.ID(),
			Actor:   actor.Account,
			Action:  fmt.Sprintf("%s cuenta de %s", verb, target.Username),
			IP:      actor.IP,
		})
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// Delete removes another account together with its complaints. History and
// log rows it authored keep their text with a null actor.
func (s *Service) Delete(ctx context.Context, actor models.Actor, targetID uint) error {
	if !actor.Can(models.CapManageUsers) {
		return ErrForbidden
	}
	if actor.Account.ID == targetID {
		return ErrSelfDeactivate
	}

	return s.Storage.InTx(ctx, func(tx storage.Storage) error {
		target, err := tx.GetAccountByID(ctx, targetID)
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteAccount(ctx, target.ID); err != nil {
			return err
		}
		return tx.AppendActivity(ctx, &models.ActivityLogEntry{
			ActorID: actor.ID(),
			Actor:   actor.Account,
			Action:  "Eliminó cuenta de " + target.Username,
			IP:      actor.IP,
		})
	})
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return s.Cost
}
