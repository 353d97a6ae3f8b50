package db

import (
	"database/sql"
	"path/filepath"

	"lumis/internal/models"

	_ "modernc.org/sqlite"
)

type Message struct {
	Role    string
	Content string
}

// Open creates or opens the conversation database inside the Lumis
// config directory.
func Open(configDir string) (*sql.DB, error) {
	dbPath := filepath.Join(configDir, "lumis.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conv_messages_conv_id ON conversation_messages(conversation_id, id);`,
	}

	for _, stmt := range schema {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

// SaveConversation stores the full message list under name, replacing
// any conversation previously saved with that name.
func SaveConversation(conn *sql.DB, name string, msgs []Message, nowUnix int64) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow("SELECT id FROM conversations WHERE name = ?", name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		res, ierr := tx.Exec(
			"INSERT INTO conversations(name, created_at, updated_at) VALUES(?, ?, ?)",
			name, nowUnix, nowUnix,
		)
		if ierr != nil {
			return ierr
		}
		id, ierr = res.LastInsertId()
		if ierr != nil {
			return ierr
		}
	case err != nil:
		return err
	default:
		if _, err := tx.Exec("DELETE FROM conversation_messages WHERE conversation_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", nowUnix, id); err != nil {
			return err
		}
	}

	for _, m := range msgs {
		if _, err := tx.Exec(
			"INSERT INTO conversation_messages(conversation_id, role, content) VALUES(?, ?, ?)",
			id, m.Role, m.Content,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadConversation returns the ordered messages saved under name, or
// sql.ErrNoRows when no such conversation exists.
func LoadConversation(conn *sql.DB, name string) ([]Message, error) {
	var id int64
	if err := conn.QueryRow("SELECT id FROM conversations WHERE name = ?", name).Scan(&id); err != nil {
		return nil, err
	}

	rows, err := conn.Query(
		"SELECT role, content FROM conversation_messages WHERE conversation_id = ? ORDER BY id ASC",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListConversations returns the most recently updated conversations.
func ListConversations(conn *sql.DB, limit int) ([]models.ConversationItem, error) {
	rows, err := conn.Query(
		`SELECT c.name, c.updated_at, COUNT(m.id)
		 FROM conversations c
		 LEFT JOIN conversation_messages m ON m.conversation_id = c.id
		 GROUP BY c.id
		 ORDER BY c.updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ConversationItem, 0, limit)
	for rows.Next() {
		var it models.ConversationItem
		if err := rows.Scan(&it.Name, &it.UpdatedAtUnix, &it.MessageCount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
