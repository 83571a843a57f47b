package server

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component runs a Server under the registry.
type Component struct {
	server *Server
}

func NewComponent(s *Server) *Component { return &Component{server: s} }

func (sc *Component) Server() *Server { return sc.server }

func (sc *Component) Name() string { return componentName }

func (sc *Component) Start(ctx context.Context) error { return sc.server.Start(ctx) }

func (sc *Component) Stop(ctx context.Context) error { return sc.server.Stop(ctx) }

// Health is healthy while the listener is bound and reports its address.
func (sc *Component) Health(_ context.Context) component.Health {
	s := sc.server
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Message: ln.Addr().String()}
}

func (sc *Component) Describe() component.Description {
	return component.Description{
		Name:    "Diagnostics API",
		Type:    "server",
		Details: sc.server.config.Addr(),
		Port:    sc.server.config.Port,
	}
}

// Routes lists Gin routes with /api/ paths first, then by path and method.
func (sc *Component) Routes() []component.Route {
	infos := sc.server.engine.Routes()
	slices.SortFunc(infos, func(a, b gin.RouteInfo) int {
		if aAPI, bAPI := isAPI(a.Path), isAPI(b.Path); aAPI != bAPI {
			if aAPI {
				return -1
			}
			return 1
		}
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
	out := make([]component.Route, len(infos))
	for i, ri := range infos {
		out[i] = component.Route{Method: ri.Method, Path: ri.Path, Handler: handlerName(ri.Handler)}
	}
	return out
}

func isAPI(path string) bool { return strings.HasPrefix(path, "/api/") }

// handlerName keeps the last named segment of a Gin handler path:
// ".../server/endpoint.ListLogs.func1" becomes "ListLogs".
func handlerName(full string) string {
	base := full[strings.LastIndex(full, "/")+1:]
	parts := strings.Split(base, ".")
	for i := len(parts) - 1; i > 0; i-- {
		if !strings.HasPrefix(parts[i], "func") {
			return strings.TrimSuffix(parts[i], "-fm")
		}
	}
	return base
}
