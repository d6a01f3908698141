package repositories

import "context"

// Repository aggregates every storage interface of the service
type Repository interface {
	Exam() ExamRepository
	Group() GroupRepository
	Question() QuestionRepository
	Assignment() AssignmentRepository
	Malpractice() MalpracticeRepository
	Submission() SubmissionRepository

	// User domain, read-only and backed by the identity provider
	User() UserRepository

	// WithTransaction runs fn against repositories bound to a single transaction
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
