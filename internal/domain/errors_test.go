package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"bible-quiz-service/internal/domain"
)

func TestIsRateLimited(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"nil":                    {err: nil, want: false},
		"sentinel":               {err: fmt.Errorf("generate: %w", domain.ErrRateLimited), want: true},
		"status code in message": {err: errors.New("googleapi: Error 429: Resource has been exhausted"), want: true},
		"lowercase quota":        {err: errors.New("you exceeded your current quota"), want: true},
		"capitalised only":       {err: errors.New("QUOTA EXHAUSTED"), want: false},
		"title case quota":       {err: errors.New("Quota reached"), want: false},
		"local timeout":          {err: fmt.Errorf("%w: %w", domain.ErrUpstream, context.DeadlineExceeded), want: false},
		"other failure":          {err: errors.New("connection reset by peer"), want: false},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, domain.IsRateLimited(tt.err))
		})
	}
}
