package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"soci/internal/cache"
	"soci/internal/core"
	"soci/internal/middleware/ratelimit"
	"soci/internal/middleware/security"
	"soci/internal/middleware/trace"
)

// The server talks to the service layer through narrow interfaces so handler
// tests can swap in fakes.
type (
	MemberAPI interface {
		CreateMember(ctx context.Context, m core.Member) (*core.Member, error)
		GetMember(ctx context.Context, id int64) (*core.Member, error)
		ListMembers(ctx context.Context, includeInactive bool) ([]core.Member, error)
		UpdateMember(ctx context.Context, m core.Member) (*core.Member, error)
		DeactivateMember(ctx context.Context, id int64) error
		RecordPayment(ctx context.Context, memberID int64, amount core.Money, paidAt time.Time) (*core.Payment, error)
		ListPaymentsByMember(ctx context.Context, memberID int64) ([]core.Payment, error)
		Outstanding(ctx context.Context, filter core.OutstandingFilter, now time.Time) (core.OutstandingReport, error)
		Overview(ctx context.Context) (core.Overview, error)
	}

	RatesAPI interface {
		Categories(ctx context.Context) ([]core.MembershipCategory, error)
		RateTable(ctx context.Context, categoryID int64) ([]core.RateRow, error)
		UpdateRateTable(ctx context.Context, categoryID int64, rates map[time.Month]core.Money) error
	}

	ApplicationAPI interface {
		Submit(ctx context.Context, a core.Application) (*core.Application, error)
		Get(ctx context.Context, id int64) (*core.Application, error)
		List(ctx context.Context, status core.ApplicationStatus) ([]core.Application, error)
		Approve(ctx context.Context, id int64) (*core.Member, error)
		Reject(ctx context.Context, id int64, notes string) error
	}
)

type Server struct {
	http.Server

	members      MemberAPI
	rates        RatesAPI
	applications ApplicationAPI

	traceMW   *trace.Middleware
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	secHeader *security.HeadersMiddleware

	// Cached data fetches. Reports are always recomputed; only their inputs
	// (member lists, payment histories, rate tables) are cached, keyed by
	// scope for invalidation.
	membersCache  *cache.LRUCache[[]core.Member]
	paymentsCache *cache.LRUCache[[]core.Payment]
	ratesCache    *cache.LRUCache[[]core.RateRow]

	// now is swapped out in tests for deterministic reports
	now func() time.Time

	// Cache cleanup management
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, members MemberAPI, rates RatesAPI, applications ApplicationAPI) *Server {
	detector := security.NewDetector()

	s := &Server{
		members:      members,
		rates:        rates,
		applications: applications,

		traceMW:   trace.NewMiddleware(detector.ExtractClientIP),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  detector,
		secHeader: security.NewHeadersMiddleware(security.DefaultHeadersConfig()),

		membersCache:  cache.NewLRUCache[[]core.Member](10, 1*time.Minute),
		paymentsCache: cache.NewLRUCache[[]core.Payment](100, 1*time.Minute),
		ratesCache:    cache.NewLRUCache[[]core.RateRow](50, 5*time.Minute),

		now: time.Now,

		stopCacheCleanup: make(chan struct{}),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/members", s.handleListMembers)
	mux.HandleFunc("POST /api/members", s.handleCreateMember)
	mux.HandleFunc("GET /api/members/{id}", s.handleGetMember)
	mux.HandleFunc("PATCH /api/members/{id}", s.handleUpdateMember)
	mux.HandleFunc("DELETE /api/members/{id}", s.handleDeleteMember)
	mux.HandleFunc("GET /api/members/{id}/payments", s.handleListMemberPayments)

	mux.HandleFunc("POST /api/payments", s.handleRecordPayment)
	mux.HandleFunc("GET /api/outstanding", s.handleOutstanding)
	mux.HandleFunc("GET /api/overview", s.handleOverview)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/categories/{id}/rates", s.handleGetRateTable)
	mux.HandleFunc("PUT /api/categories/{id}/rates", s.handleUpdateRateTable)

	mux.HandleFunc("POST /api/applications", s.handleSubmitApplication)
	mux.HandleFunc("GET /api/applications", s.handleListApplications)
	mux.HandleFunc("POST /api/applications/{id}/approve", s.handleApproveApplication)
	mux.HandleFunc("POST /api/applications/{id}/reject", s.handleRejectApplication)

	// Middleware chain, outermost first: tracing, security, rate limiting
	var handler http.Handler = mux
	handler = s.limiter.Middleware(detector.ExtractClientIP, nil)(handler)
	handler = s.suspiciousRequestFilter(handler)
	handler = s.secHeader.Middleware(handler)
	handler = s.traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start periodic cache cleanup
	go s.startCacheCleanup()

	return s
}

// suspiciousRequestFilter rejects obvious probes before they hit handlers.
func (s *Server) suspiciousRequestFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request rejected",
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startCacheCleanup runs periodic cleanup for both caches
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			membersCleaned := s.membersCache.CleanExpired()
			paymentsCleaned := s.paymentsCache.CleanExpired()
			ratesCleaned := s.ratesCache.CleanExpired()
			if membersCleaned > 0 || paymentsCleaned > 0 || ratesCleaned > 0 {
				slog.Debug("Cache cleanup completed",
					"members_entries_removed", membersCleaned,
					"payments_entries_removed", paymentsCleaned,
					"rates_entries_removed", ratesCleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// invalidateMemberData clears every cache entry derived from member or
// payment rows. Rate tables survive, they only change via their own PUT.
func (s *Server) invalidateMemberData() {
	removed := cache.InvalidateScope(cache.ScopeMembers, s.membersCache)
	removed += cache.InvalidateScope(cache.ScopePayments, s.paymentsCache)
	if removed > 0 {
		slog.Debug("Member caches invalidated", "entries_removed", removed)
	}
}

func (s *Server) invalidateRates() {
	cache.InvalidateScope(cache.ScopeRates, s.ratesCache)
}

// cachedMembers serves member lists through the cache.
func (s *Server) cachedMembers(ctx context.Context, includeInactive bool) ([]core.Member, error) {
	key := cache.Key(cache.ScopeMembers, strconv.FormatBool(includeInactive))
	if members, found := s.membersCache.Get(key); found {
		slog.DebugContext(ctx, "Members cache hit", "include_inactive", includeInactive)
		result := make([]core.Member, len(members))
		copy(result, members)
		return result, nil
	}

	members, err := s.members.ListMembers(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	s.membersCache.Set(key, members)
	return members, nil
}

// cachedMemberPayments serves per-member payment histories through the cache.
func (s *Server) cachedMemberPayments(ctx context.Context, memberID int64) ([]core.Payment, error) {
	key := cache.Key(cache.ScopePayments, strconv.FormatInt(memberID, 10))
	if payments, found := s.paymentsCache.Get(key); found {
		slog.DebugContext(ctx, "Payments cache hit", "member_id", memberID)
		return payments, nil
	}

	payments, err := s.members.ListPaymentsByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	s.paymentsCache.Set(key, payments)
	return payments, nil
}

// cachedRateTable serves rate tables through the cache.
func (s *Server) cachedRateTable(ctx context.Context, categoryID int64) ([]core.RateRow, error) {
	key := cache.Key(cache.ScopeRates, strconv.FormatInt(categoryID, 10))
	if rows, found := s.ratesCache.Get(key); found {
		slog.DebugContext(ctx, "Rates cache hit", "category_id", categoryID)
		return rows, nil
	}

	rows, err := s.rates.RateTable(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	s.ratesCache.Set(key, rows)
	return rows, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means the storage layer answers; a cheap list suffices.
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.rates.Categories(ctx); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.traceMW.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# TYPE soci_http_requests_total counter\n")
	fmt.Fprintf(w, "soci_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "# TYPE soci_http_response_time_microseconds gauge\n")
	fmt.Fprintf(w, "soci_http_response_time_microseconds %d\n", tm.AverageResponseTime)
	fmt.Fprintf(w, "# TYPE soci_ratelimit_hits_total counter\n")
	fmt.Fprintf(w, "soci_ratelimit_hits_total %d\n", rm.TotalHits)
	fmt.Fprintf(w, "# TYPE soci_ratelimit_clients gauge\n")
	fmt.Fprintf(w, "soci_ratelimit_clients %d\n", rm.ClientCount)
	fmt.Fprintf(w, "# TYPE soci_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "soci_suspicious_requests_total %d\n", dm.SuspiciousRequests)
	fmt.Fprintf(w, "# TYPE soci_cache_entries gauge\n")
	fmt.Fprintf(w, "soci_cache_entries{cache=\"members\"} %d\n", s.membersCache.Size())
	fmt.Fprintf(w, "soci_cache_entries{cache=\"payments\"} %d\n", s.paymentsCache.Size())
	fmt.Fprintf(w, "soci_cache_entries{cache=\"rates\"} %d\n", s.ratesCache.Size())
}
