package db

import (
	"context"
	"database/sql"

	"github.com/clckenya/chatd/internal/chat/entity"
	"github.com/clckenya/chatd/internal/pkg/goerror"
)

func (s *DB) CreateMessage(ctx context.Context, msg entity.Message) (err error) {
	ctx, span := s.startSpan(ctx, "CreateMessage")
	defer func() { s.endSpan(span, err) }()

	const query = `
		INSERT INTO chat_messages (id, sender, body, attachment_key, pinned, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	_, err = s.conn.Exec(ctx, query,
		msg.ID, msg.Sender, msg.Text, msg.AttachmentKey, msg.Pinned, msg.CreatedAt)
	err = s.mapError(err)
	return err
}

func (s *DB) GetMessage(ctx context.Context, id int64) (msg *entity.Message, err error) {
	ctx, span := s.startSpan(ctx, "GetMessage")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, sender, body, attachment_key, pinned, created_at
		FROM chat_messages
		WHERE id = $1`

	var row entity.Message
	var attKey sql.NullString
	err = s.conn.QueryRow(ctx, query, id).Scan(
		&row.ID, &row.Sender, &row.Text, &attKey, &row.Pinned, &row.CreatedAt)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	row.AttachmentKey = attKey.String

	return &row, nil
}

func (s *DB) ListMessages(ctx context.Context, after int64, limit int32) (msgs []entity.Message, err error) {
	ctx, span := s.startSpan(ctx, "ListMessages")
	defer func() { s.endSpan(span, err) }()

	const query = `
		SELECT id, sender, body, attachment_key, pinned, created_at
		FROM chat_messages
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`

	rows, err := s.conn.Query(ctx, query, after, limit)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row entity.Message
		var attKey sql.NullString
		if err = rows.Scan(&row.ID, &row.Sender, &row.Text, &attKey, &row.Pinned, &row.CreatedAt); err != nil {
			err = s.mapError(err)
			return nil, err
		}
		row.AttachmentKey = attKey.String
		msgs = append(msgs, row)
	}
	if err = rows.Err(); err != nil {
		err = s.mapError(err)
		return nil, err
	}

	return msgs, nil
}

func (s *DB) SetMessagePinned(ctx context.Context, id int64, pinned bool) (err error) {
	ctx, span := s.startSpan(ctx, "SetMessagePinned")
	defer func() { s.endSpan(span, err) }()

	const query = `UPDATE chat_messages SET pinned = $2 WHERE id = $1`

	tag, err := s.conn.Exec(ctx, query, id, pinned)
	if err != nil {
		err = s.mapError(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		err = goerror.ErrNotFound
		return err
	}

	return nil
}
