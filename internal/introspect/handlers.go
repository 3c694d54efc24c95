package introspect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/declkit/declkit/runtime/mirror"
)

// Handlers serves the introspection API from a snapshot provider.
type Handlers struct {
	provider SnapshotProvider
	hub      *EventHub
	logger   *zap.Logger
}

// NewHandlers creates the handler set. The hub may be nil, in which
// case the event stream endpoint is not mounted.
func NewHandlers(provider SnapshotProvider, hub *EventHub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{provider: provider, hub: hub, logger: logger}
}

// Routes mounts all API endpoints on the router.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/classes", h.handleListClasses)
		r.Route("/classes/{name}", func(r chi.Router) {
			r.Get("/", h.handleGetClass)
			r.Get("/members", h.handleMembers)
			r.Get("/metadata", h.handleMetadata)
			r.Get("/parameters", h.handleParameters)
		})
		r.Get("/hierarchy", h.handleHierarchy)
		r.Get("/snapshot", h.handleSnapshot)
	})

	if h.hub != nil {
		r.Get("/ws/events", h.hub.HandleWebSocket)
	}
}

// classSummary is the list form of a class.
type classSummary struct {
	Name      string `json:"name"`
	Package   string `json:"package,omitempty"`
	Qualified string `json:"qualified"`
	Parent    string `json:"parent,omitempty"`
	Members   int    `json:"members"`
	Metadata  int    `json:"metadata"`
}

// hierarchyNode is one class in the inheritance forest.
type hierarchyNode struct {
	Name     string           `json:"name"`
	Children []*hierarchyNode `json:"children,omitempty"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap, err := h.provider.Snapshot()
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"classes": len(snap.Classes),
	})
}

func (h *Handlers) handleListClasses(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	summaries := make([]classSummary, 0, len(snap.Classes))
	for i := range snap.Classes {
		c := &snap.Classes[i]
		summaries = append(summaries, classSummary{
			Name:      c.Name,
			Package:   c.Package,
			Qualified: c.Qualified,
			Parent:    c.Parent,
			Members:   len(c.Members),
			Metadata:  len(c.Metadata),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"classes": summaries,
		"count":   len(summaries),
	})
}

func (h *Handlers) handleGetClass(w http.ResponseWriter, r *http.Request) {
	snap, c, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	ancestors := snap.Ancestry(c)
	names := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		names = append(names, a.Qualified)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"class":     c,
		"ancestors": names,
	})
}

// handleMembers returns a class's members. Query parameters: all=true
// merges inherited members with override semantics, kind filters by
// member kind, static selects the namespace.
func (h *Handlers) handleMembers(w http.ResponseWriter, r *http.Request) {
	snap, c, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	static, err := boolParam(r, "static")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	all, err := boolParam(r, "all")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}
	kind, err := mirror.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}

	var members []mirror.MemberSnapshot
	if all {
		members = mirror.EffectiveMembers(snap.MergedMembers(c, static))
	} else {
		for _, m := range c.Members {
			if m.Static == static {
				members = append(members, m)
			}
		}
	}

	if kind != mirror.KindAny {
		filtered := members[:0]
		for _, m := range members {
			if m.Kind == kind.String() {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}
	if members == nil {
		members = []mirror.MemberSnapshot{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"class":   c.Qualified,
		"members": members,
		"count":   len(members),
	})
}

// handleMetadata returns a class's payloads. With all=true the response
// follows the merge order: current class first, then ancestors.
func (h *Handlers) handleMetadata(w http.ResponseWriter, r *http.Request) {
	snap, c, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	all, err := boolParam(r, "all")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "bad_request")
		return
	}

	metadata := c.Metadata
	if all {
		metadata = snap.MergedMetadata(c)
	}
	if metadata == nil {
		metadata = []mirror.PayloadSnapshot{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"class":    c.Qualified,
		"metadata": metadata,
		"count":    len(metadata),
	})
}

func (h *Handlers) handleParameters(w http.ResponseWriter, r *http.Request) {
	_, c, ok := h.lookupClass(w, r)
	if !ok {
		return
	}

	parameters := c.Parameters
	if parameters == nil {
		parameters = []mirror.ParameterSnapshot{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"class":       c.Qualified,
		"parameters":  parameters,
		"param_types": c.ParamTypes,
	})
}

// handleHierarchy returns the inheritance forest of all registered
// classes. Classes whose parent is not in the snapshot are roots.
func (h *Handlers) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	nodes := make(map[string]*hierarchyNode, len(snap.Classes))
	for i := range snap.Classes {
		c := &snap.Classes[i]
		nodes[c.Qualified] = &hierarchyNode{Name: c.Qualified}
	}

	var roots []*hierarchyNode
	for i := range snap.Classes {
		c := &snap.Classes[i]
		node := nodes[c.Qualified]
		parent, ok := snap.Class(c.Parent)
		if c.Parent != "" && ok && parent.Qualified != c.Qualified {
			// Resolve bare parent references the same way class lookup does.
			p := nodes[parent.Qualified]
			p.Children = append(p.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	if roots == nil {
		roots = []*hierarchyNode{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"roots": roots,
	})
}

func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// snapshot fetches the current snapshot, rendering a 500 on failure.
func (h *Handlers) snapshot(w http.ResponseWriter) (*mirror.Snapshot, bool) {
	snap, err := h.provider.Snapshot()
	if err != nil {
		h.logger.Error("snapshot unavailable", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error(), "snapshot_unavailable")
		return nil, false
	}
	return snap, true
}

// lookupClass resolves the {name} path parameter against the snapshot.
// Qualified names carry slashes, so clients pass the bare name and
// disambiguate with the package query parameter when needed.
func (h *Handlers) lookupClass(w http.ResponseWriter, r *http.Request) (*mirror.Snapshot, *mirror.ClassSnapshot, bool) {
	snap, ok := h.snapshot(w)
	if !ok {
		return nil, nil, false
	}

	name := chi.URLParam(r, "name")
	if pkg := r.URL.Query().Get("package"); pkg != "" {
		name = pkg + "." + name
	}

	c, found := snap.Class(name)
	if !found {
		respondError(w, http.StatusNotFound,
			"class not found (bare names must be unique, qualify with ?package=)", "class_not_found")
		return nil, nil, false
	}
	return snap, c, true
}

// boolParam parses an optional boolean query parameter.
func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	return v, nil
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, &errorResponse{
		Error:   "error",
		Message: message,
		Code:    code,
	})
}
