package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/poiesic/vecport/core"
)

// InsertConversations inserts a batch of conversations inside one
// transaction with insert-or-skip semantics on the identifier. The
// record identifier is the natural key; session identifiers are shared
// across turns and carry no uniqueness.
func (s *Store) InsertConversations(ctx context.Context, conversations []*core.Conversation) (int, int, error) {
	if len(conversations) == 0 {
		return 0, 0, nil
	}

	rows := make([]conversationRow, len(conversations))
	for i, conversation := range conversations {
		rows[i] = conversationToRow(conversation)
	}

	var written int
	err := s.withTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		written = int(affected)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return written, len(conversations) - written, nil
}

// InsertConversation inserts one conversation in its own transaction.
func (s *Store) InsertConversation(ctx context.Context, conversation *core.Conversation) (bool, error) {
	written, _, err := s.InsertConversations(ctx, []*core.Conversation{conversation})
	return written == 1, err
}
