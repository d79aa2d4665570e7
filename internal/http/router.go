package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers and middleware into the route table.
// RequireSession guards the authenticated routes; Middleware wraps the
// whole router, outermost first.
type RouterConfig struct {
	Auth           *AuthHandler
	Games          *GameHandler
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := cfg.RequireSession
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.SignUp(w, r)
		})
		mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.SignIn(w, r)
		})
		mux.HandleFunc("/signout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.SignOut(w, r)
		})
	}

	if cfg.Games != nil {
		createGame := guard(http.HandlerFunc(cfg.Games.Create))
		joinGame := guard(http.HandlerFunc(cfg.Games.Join))
		leaveGame := guard(http.HandlerFunc(cfg.Games.Leave))
		cancelGame := guard(http.HandlerFunc(cfg.Games.Cancel))

		mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Games.List(w, r)
			case http.MethodPost:
				createGame.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/games/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/games/")
			gameID, action, _ := strings.Cut(rest, "/")
			if gameID == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithGameID(r.Context(), gameID))

			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Games.Get(w, r)
			case "join":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				joinGame.ServeHTTP(w, r)
			case "leave":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				leaveGame.ServeHTTP(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cancelGame.ServeHTTP(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
