package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig wires handlers and middleware into the API router. Middleware
// wraps every route; SessionMiddleware and RateLimitMiddleware apply only to
// the authenticated surface.
type RouterConfig struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Study       *StudyHandler
	Navigator   *NavigatorHandler
	Friends     *FriendHandler
	Communities *CommunityHandler
	Library     *LibraryHandler

	SessionMiddleware   func(http.Handler) http.Handler
	RateLimitMiddleware func(http.Handler) http.Handler
	Middleware          []func(http.Handler) http.Handler
}

// NewRouter builds the API route table. Registration, login, and library
// search stay public; everything else requires a session.
func NewRouter(cfg RouterConfig) http.Handler {
	root := mux.NewRouter()
	api := root.PathPrefix("/api").Subrouter()

	if cfg.Users != nil {
		api.HandleFunc("/register", cfg.Users.Register).Methods(http.MethodPost)
	}
	if cfg.Auth != nil {
		api.HandleFunc("/sessions", cfg.Auth.CreateSession).Methods(http.MethodPost)
	}
	if cfg.Library != nil {
		api.HandleFunc("/library/search", cfg.Library.Search).Methods(http.MethodGet)
	}

	protected := api.NewRoute().Subrouter()
	if cfg.SessionMiddleware != nil {
		protected.Use(cfg.SessionMiddleware)
	}
	if cfg.RateLimitMiddleware != nil {
		protected.Use(cfg.RateLimitMiddleware)
	}

	if cfg.Auth != nil {
		protected.HandleFunc("/sessions/current", cfg.Auth.DeleteCurrentSession).Methods(http.MethodDelete)
	}
	if cfg.Users != nil {
		protected.HandleFunc("/profile", cfg.Users.GetProfile).Methods(http.MethodGet)
		protected.HandleFunc("/profile", cfg.Users.UpdateProfile).Methods(http.MethodPut)
	}
	if cfg.Study != nil {
		protected.HandleFunc("/study/data", cfg.Study.Data).Methods(http.MethodGet)
		protected.HandleFunc("/study/send", cfg.Study.Send).Methods(http.MethodPost)
	}
	if cfg.Navigator != nil {
		protected.HandleFunc("/study/navigator", cfg.Navigator.List).Methods(http.MethodGet)
		protected.HandleFunc("/study/navigator/command", cfg.Navigator.Command).Methods(http.MethodPost)
		protected.HandleFunc("/study/blocks/{block_id}", cfg.Navigator.DeleteBlock).Methods(http.MethodPost)
	}
	if cfg.Friends != nil {
		protected.HandleFunc("/study/search_users", cfg.Friends.Search).Methods(http.MethodGet)
		protected.HandleFunc("/study/add_friend", cfg.Friends.Add).Methods(http.MethodPost)
		protected.HandleFunc("/study/friends", cfg.Friends.List).Methods(http.MethodGet)
	}
	if cfg.Communities != nil {
		protected.HandleFunc("/communities", cfg.Communities.List).Methods(http.MethodGet)
		protected.HandleFunc("/communities", cfg.Communities.Create).Methods(http.MethodPost)
		protected.HandleFunc("/communities/{slug}", cfg.Communities.Get).Methods(http.MethodGet)
		protected.HandleFunc("/communities/{slug}/join", cfg.Communities.Join).Methods(http.MethodPost)
		protected.HandleFunc("/communities/{slug}/leave", cfg.Communities.Leave).Methods(http.MethodPost)
		protected.HandleFunc("/communities/{slug}/posts", cfg.Communities.ListPosts).Methods(http.MethodGet)
		protected.HandleFunc("/communities/{slug}/posts", cfg.Communities.CreatePost).Methods(http.MethodPost)
	}

	var handler http.Handler = root
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
