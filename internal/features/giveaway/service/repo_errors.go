package service

import (
	stderrors "errors"

	"github.com/azatarm-prog/telegive-giveaway/internal/features/giveaway/repository"
)

func isNotFound(err error) bool {
	return stderrors.Is(err, repository.ErrGiveawayNotFound)
}

func isStale(err error) bool {
	return stderrors.Is(err, repository.ErrStaleTransition)
}

func asActiveLimit(err error) (*repository.ActiveLimitError, bool) {
	var limitErr *repository.ActiveLimitError
	if stderrors.As(err, &limitErr) {
		return limitErr, true
	}
	return nil, false
}
