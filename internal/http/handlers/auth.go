package handlers

import (
	"fmt"
	"net/http"

	"justbecause/internal/auth"
	"justbecause/internal/domain"
	"justbecause/internal/middleware"
)

type signupRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	Locale   string      `json:"locale"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string      `json:"id_token"`
	Role    domain.Role `json:"role"`
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type updateMeRequest struct {
	Name      *string `json:"name"`
	Locale    *string `json:"locale"`
	AvatarURL *string `json:"avatar_url"`
}

func (a *App) session(w http.ResponseWriter, code int, s *auth.Session) {
	a.json(w, code, sessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      newAccountView(s.User, a.Clock.Now()),
	})
}

func (a *App) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Locale == "" {
		req.Locale = middleware.LocaleFromContext(r.Context())
	}
	s, err := a.Auth.Signup(r.Context(), auth.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Locale:   req.Locale,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.session(w, http.StatusCreated, s)
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, err := a.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.session(w, http.StatusOK, s)
}

func (a *App) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		a.fail(w, r, domain.Invalid("id_token", "is required"))
		return
	}
	s, err := a.Auth.GoogleSignIn(r.Context(), req.IDToken, req.Role, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.session(w, http.StatusOK, s)
}

func (a *App) ChooseRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !a.decode(w, r, &req) {
		return
	}
	s, err := a.Auth.ChooseRole(r.Context(), a.currentUserID(r), req.Role)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.session(w, http.StatusOK, s)
}

func (a *App) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Auth.ForgotPassword(r.Context(), req.Email); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Auth.VerifyEmail(r.Context(), req.Token); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := a.Auth.ResendVerification(r.Context(), a.currentUserID(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, newAccountView(a.currentUser(r), a.Clock.Now()))
}

func (a *App) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !a.decode(w, r, &req) {
		return
	}
	user, err := a.Auth.UpdateMe(r.Context(), a.currentUserID(r), auth.UpdateMeInput{
		Name:      req.Name,
		Locale:    req.Locale,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newAccountView(user, a.Clock.Now()))
}

// ExportMe streams the caller's data as a zip archive.
func (a *App) ExportMe(w http.ResponseWriter, r *http.Request) {
	data, err := a.Auth.ExportMe(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("justbecause-export-%s.zip", a.Clock.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
