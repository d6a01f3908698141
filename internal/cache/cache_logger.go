package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

func ExamKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

func QuestionKey(id uint) string {
	return fmt.Sprintf("id:%d", id)
}

func ExamSummaryKey(examID uint) string {
	return fmt.Sprintf("exam:%d:summary", examID)
}

// InvalidateExamStats drops cached aggregates of an exam after any assignment of it changes
func InvalidateExamStats(ctx context.Context, cm *CacheManager, examID uint) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("exam:%d:*", examID))
}
