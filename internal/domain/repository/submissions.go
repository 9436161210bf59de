package repository

import (
	"context"
	"errors"

	"github.com/ignatzorin/bounty-indexer/internal/domain/entity"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

// FindOrCreateSubmission возвращает решение пары (задача, агент) или создаёт fresh.
// Если строку между поиском и вставкой записал другой писатель, она перечитывается.
// created=true означает, что записано именно fresh.
func FindOrCreateSubmission(ctx context.Context, tx Store, fresh *entity.Submission) (sub *entity.Submission, created bool, err error) {
	sub, err = tx.Submissions().FindByTaskAndAgent(ctx, fresh.TaskID, fresh.Agent)
	if err == nil {
		return sub, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, err
	}

	err = tx.Submissions().Create(ctx, fresh)
	if err == nil {
		return fresh, true, nil
	}
	if !errors.Is(err, apperror.ErrSubmissionExists) {
		return nil, false, err
	}
	sub, err = tx.Submissions().FindByTaskAndAgent(ctx, fresh.TaskID, fresh.Agent)
	if err != nil {
		return nil, false, err
	}
	return sub, false, nil
}
