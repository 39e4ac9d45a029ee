package http

import (
	"errors"
	"log/slog"
	"net/http"

	"kharcha/internal/auth"
)

// handleLogin lists the configured sign-in URLs so a client can render the
// provider buttons.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	type providerLink struct {
		Provider string `json:"provider"`
		URL      string `json:"url"`
	}
	links := make([]providerLink, 0, 2)
	for _, name := range s.auth.Providers() {
		links = append(links, providerLink{Provider: name, URL: "/auth/" + name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": links})
}

// handleAuthStart redirects the browser to the provider's consent page.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	provider, err := s.auth.Provider(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown sign-in provider.")
		return
	}

	state, err := s.sessions.IssueState(w)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to issue OAuth state", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// handleAuthCallback completes the OAuth flow: verifies state, exchanges
// the code, resolves the account, and issues the session cookie.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	provider, err := s.auth.Provider(r.PathValue("provider"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown sign-in provider.")
		return
	}

	if errStr := r.URL.Query().Get("error"); errStr != "" {
		slog.WarnContext(ctx, "Provider returned OAuth error",
			"provider", provider.Name(), "oauth_error", errStr)
		writeError(w, http.StatusBadRequest, "Sign-in was cancelled or rejected.")
		return
	}

	if !s.sessions.VerifyState(w, r, r.URL.Query().Get("state")) {
		writeError(w, http.StatusBadRequest, "Sign-in state is invalid or expired.")
		return
	}

	identity, err := provider.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		slog.ErrorContext(ctx, "OAuth code exchange failed",
			"provider", provider.Name(), "error", err)
		writeError(w, http.StatusBadGateway, "Sign-in with the provider failed. Please try again.")
		return
	}

	user, err := s.auth.SignIn(ctx, identity)
	if err != nil {
		if errors.Is(err, auth.ErrEmailRequired) {
			writeError(w, http.StatusUnprocessableEntity,
				"Your provider account has no email address we can use.")
			return
		}
		slog.ErrorContext(ctx, "Account resolution failed",
			"provider", provider.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	if err := s.sessions.Issue(w, user.ID, user.Email); err != nil {
		slog.ErrorContext(ctx, "Failed to issue session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	slog.InfoContext(ctx, "User signed in",
		"user_id", user.ID, "provider", provider.Name())
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe reports the signed-in user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": session.UserID,
		"email":  session.Email,
	})
}
