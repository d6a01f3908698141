package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/grading"
	"github.com/SAP-F-2025/exam-session-service/internal/integrity"
	"github.com/SAP-F-2025/exam-session-service/internal/judge"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// MalpracticeLimit applies to exams without their own max_violations
	MalpracticeLimit int
	DraftTTL         time.Duration

	// Now overrides the clock, for tests
	Now func() time.Time
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo         repositories.Repository
	publisher    events.EventPublisher
	judge        judge.Client
	cacheManager *cache.CacheManager
	logger       *slog.Logger
	validator    *validator.Validator
	config       ServiceManagerConfig

	// Service instances
	sessionService     SessionService
	malpracticeService MalpracticeService
	integrityService   IntegrityService
	submissionService  SubmissionService
	lifecycleService   LifecycleService
	examService        ExamService
	reportService      ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies.
// cacheManager may be nil, in which case drafts are not kept.
func NewServiceManager(
	repo repositories.Repository,
	publisher events.EventPublisher,
	judgeClient judge.Client,
	cacheManager *cache.CacheManager,
	logger *slog.Logger,
	validator *validator.Validator,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		repo:         repo,
		publisher:    publisher,
		judge:        judgeClient,
		cacheManager: cacheManager,
		logger:       logger,
		validator:    validator,
		config:       config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.repo == nil {
		return fmt.Errorf("repository is required")
	}
	if sm.judge == nil {
		return fmt.Errorf("judge client is required")
	}

	sm.initializeServices()

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	cacheManager := sm.cacheManager
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}

	deps := Dependencies{
		Repo:             sm.repo,
		Publisher:        sm.publisher,
		Judge:            sm.judge,
		Drafts:           cache.NewDraftStore(cacheManager, sm.config.DraftTTL),
		Monitors:         integrity.NewRegistry(),
		Grader:           grading.NewEngine(sm.logger),
		Validator:        sm.validator,
		Logger:           sm.logger,
		MalpracticeLimit: sm.config.MalpracticeLimit,
		Now:              sm.config.Now,
	}.withDefaults()

	sm.sessionService = NewSessionService(deps)
	sm.malpracticeService = NewMalpracticeService(deps)
	// Violations raised by the monitors go through the same ledger as direct reports
	sm.integrityService = NewIntegrityService(deps, sm.malpracticeService)
	sm.submissionService = NewSubmissionService(deps)
	sm.lifecycleService = NewLifecycleService(deps)
	sm.examService = NewExamService(deps)
	sm.reportService = NewReportService(deps)

	sm.logger.Info("Services initialized",
		"malpractice_limit", deps.MalpracticeLimit,
		"drafts_enabled", cacheManager.Draft.Available())
}

// Service getters
func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.sessionService
}

func (sm *serviceManager) Malpractice() MalpracticeService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.malpracticeService
}

func (sm *serviceManager) Integrity() IntegrityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.integrityService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.submissionService
}

func (sm *serviceManager) Lifecycle() LifecycleService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.lifecycleService
}

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.examService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.reportService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	var errs []error
	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
			errs = append(errs, err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return errors.Join(errs...)
}
