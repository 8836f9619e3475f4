package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failing optional dependency.
	Degraded Status = "degraded"
	// Unhealthy indicates the service cannot rank.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentCatalog     = "catalog"
	ComponentDatabase    = "database"
	ComponentPreferences = "preferences"
	ComponentEmbedding   = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Option attaches an optional dependency to the health service.
type Option func(*Service)

// WithDatabase checks the shared key-value database.
func WithDatabase(db Pinger) Option {
	return func(s *Service) { s.db = db }
}

// WithPreferences checks a dislike store that lives outside the shared database.
func WithPreferences(p Pinger) Option {
	return func(s *Service) { s.prefs = p }
}

// WithEmbedding checks the embedding provider.
func WithEmbedding(e Checker) Option {
	return func(s *Service) { s.embedding = e }
}

// Service coordinates health checks.
type Service struct {
	catalog   Catalog
	db        Pinger
	prefs     Pinger
	embedding Checker
}

// New creates a Service. Only the catalog is mandatory.
func New(catalog Catalog, opts ...Option) *Service {
	s := &Service{catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check runs health checks against all components. An empty catalog makes the
// service unhealthy; any other failure only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks[ComponentCatalog] = result(s.catalog != nil && s.catalog.Len() > 0)

	if s.db != nil {
		checks[ComponentDatabase] = result(s.db.Ping(ctx) == nil)
	}
	if s.prefs != nil {
		checks[ComponentPreferences] = result(s.prefs.Ping(ctx) == nil)
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = result(s.embedding.HealthCheck(ctx) == nil)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentCatalog] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
