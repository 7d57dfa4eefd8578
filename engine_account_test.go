package goAuthClient

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goAuthClient/api"
	"github.com/MrEthical07/goAuthClient/validate"
)

func strPtr(s string) *string { return &s }

func TestProfileIsCachedUntilSelfUpdate(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "ada@example.com", "Secret123")
	ctx := context.Background()

	p, err := e.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.ID != 7 || p.Name != "Ada" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := e.Profile(ctx); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if got := e.svc.userCalls.Load(); got != 1 {
		t.Fatalf("expected cached profile, got %d requests", got)
	}

	if err := e.UpdateContactData(ctx, 7, api.ContactDataPatch{City: strPtr("Hamburg")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	p, err = e.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.City != "Hamburg" || e.svc.userCalls.Load() != 2 {
		t.Fatalf("self update must refresh the profile, got %+v after %d requests", p, e.svc.userCalls.Load())
	}
}

func TestProfileDroppedOnLogout(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "ada@example.com", "Secret123")
	if _, err := e.Profile(context.Background()); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if err := e.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := e.Profile(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	e.mu.Lock()
	cached := e.profile
	e.mu.Unlock()
	if cached != nil {
		t.Fatal("logout must drop the cached profile")
	}
}

func TestUpdateContactDataValidatesLocally(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "ada@example.com", "Secret123")

	err := e.UpdateContactData(context.Background(), 7, api.ContactDataPatch{
		Postcode: strPtr("12a"),
		Phone:    strPtr("123"),
	})
	var fields *InvalidFieldsError
	if !errors.As(err, &fields) {
		t.Fatalf("expected InvalidFieldsError, got %v", err)
	}
	if len(fields.Field(validate.FieldPostcode)) == 0 || len(fields.Field(validate.FieldPhone)) == 0 {
		t.Fatalf("expected postcode and phone violations, got %v", fields.Fields)
	}
	if len(fields.Field(validate.FieldName)) != 0 {
		t.Fatal("untouched fields must not be validated")
	}
	if e.svc.updateCalls.Load() != 0 {
		t.Fatal("invalid input must not reach the service")
	}
	if got := e.MetricsSnapshot().Counters[MetricValidationRejected]; got != 1 {
		t.Fatalf("expected validation metric, got %d", got)
	}
}

func TestUpdatePasswordRepeatMustMatch(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "ada@example.com", "Secret123")

	err := e.UpdatePassword(context.Background(), 7, "Secret123", "NewSecret1", "NewSecret2")
	var fields *InvalidFieldsError
	if !errors.As(err, &fields) || len(fields.Field(validate.FieldPasswordRepeat)) == 0 {
		t.Fatalf("expected repeat violation, got %v", err)
	}
	if e.svc.updateCalls.Load() != 0 {
		t.Fatal("invalid input must not reach the service")
	}

	if err := e.UpdatePassword(context.Background(), 7, "Secret123", "NewSecret1", "NewSecret1"); err != nil {
		t.Fatalf("update password: %v", err)
	}
}

func TestPrivilegedOperationsNeedAdmin(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "ada@example.com", "Secret123")
	ctx := context.Background()

	if err := e.UpdateRole(ctx, 1, "user"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := e.UpdatePasswordPrivileged(ctx, 1, "NewSecret1", "NewSecret1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := e.UpdateEmailPrivileged(ctx, 1, "new@example.com"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if e.svc.updateCalls.Load() != 0 {
		t.Fatal("forbidden calls must not reach the service")
	}
}

func TestUpdateRoleChecksKnownRoles(t *testing.T) {
	e := newTestEngine(t, nil)
	login(t, e, "root@example.com", "Admin1234")
	ctx := context.Background()

	roles, err := e.Roles(ctx)
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(roles) != 2 || len(e.KnownRoles()) != 2 {
		t.Fatalf("unexpected roles %v", roles)
	}

	if err := e.UpdateRole(ctx, 7, "superuser"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if err := e.UpdateRole(ctx, 7, "admin"); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if got := e.svc.updateCalls.Load(); got != 1 {
		t.Fatalf("expected one role update, got %d", got)
	}
}

func TestAccountCallsNeedSession(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.User(ctx, 7); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := e.Search(ctx, api.SearchQuery{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := e.UpdateEmail(ctx, 7, "new@example.com"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if e.svc.userCalls.Load() != 0 || e.svc.updateCalls.Load() != 0 {
		t.Fatal("no request without a session")
	}
}

func TestRegisterValidatesAndDoesNotLogIn(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	bad := api.Registration{Email: "not-an-email", Password: "short"}
	err := e.Register(ctx, bad)
	var fields *InvalidFieldsError
	if !errors.As(err, &fields) {
		t.Fatalf("expected InvalidFieldsError, got %v", err)
	}
	if len(fields.Field(validate.FieldEmail)) == 0 || len(fields.Field(validate.FieldPassword)) == 0 {
		t.Fatalf("unexpected violations %v", fields.Fields)
	}
	if e.svc.registerCalls.Load() != 0 {
		t.Fatal("invalid registration must not be sent")
	}

	good := api.Registration{
		Email:    "grace@example.com",
		Password: "Hopper1906",
		ContactData: api.ContactData{
			Name:     "Grace Hopper",
			Postcode: "10115",
			City:     "Berlin",
			Phone:    "+49 30 1234567",
		},
	}
	if err := e.Register(ctx, good); err != nil {
		t.Fatalf("register: %v", err)
	}
	if e.svc.registerCalls.Load() != 1 {
		t.Fatal("expected one registration")
	}
	if e.IsAuthenticated() {
		t.Fatal("register must not log in")
	}
}

func TestVerifyUserMapsAlreadyVerified(t *testing.T) {
	e := newTestEngine(t, nil)
	err := e.VerifyUser(context.Background(), 7, 123456)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}

	if err := e.VerifyUser(context.Background(), 7, -1); !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("expected ErrInvalidFields for negative code, got %v", err)
	}
}
