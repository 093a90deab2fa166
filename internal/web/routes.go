package web

import (
	"context"
	"fmt"
	"net/http"
)

// titleSuffix is appended to every page title.
const titleSuffix = "A/B Testing"

// defaultTitle is used for pages without a title of their own.
const defaultTitle = "App"

// Route is one entry of the dashboard's static routing table.
type Route struct {
	Name    string
	Pattern string
	Title   string
}

// Routes lists the dashboard pages. The create page is a static segment, so
// chi prefers it over the {id} parameter regardless of order.
var Routes = []Route{
	{Name: "experiments", Pattern: "/", Title: "Experiments"},
	{Name: "experiment-detail", Pattern: "/experiments/{id}", Title: "Experiment Detail"},
	{Name: "experiment-create", Pattern: "/experiments/create", Title: "Create Experiment"},
}

// RouteByName returns the route with the given name.
func RouteByName(name string) (Route, bool) {
	for _, rt := range Routes {
		if rt.Name == name {
			return rt, true
		}
	}
	return Route{}, false
}

type titleKey struct{}

// PageTitle formats a document title from a route title.
func PageTitle(title string) string {
	if title == "" {
		title = defaultTitle
	}
	return fmt.Sprintf("%s | %s", title, titleSuffix)
}

// TitleFromContext returns the title set by TitleGuard, or the default title.
func TitleFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(titleKey{}).(string); ok {
		return t
	}
	return PageTitle("")
}

// TitleGuard runs before every navigation: it stores the page title in the
// request context and always continues to the page.
func TitleGuard(title string) func(http.Handler) http.Handler {
	full := PageTitle(title)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), titleKey{}, full)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
