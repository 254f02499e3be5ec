package store

import (
	"errors"
	"fmt"
	"path"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

type Config interface {
	DataDirectory() string
}

type store struct {
	db *sqlx.DB
}

func New(config Config) (*store, error) {
	dbName := path.Join(config.DataDirectory(), "waggle.db")

	db, err := sqlx.Connect("sqlite3", "file:"+dbName+"?_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	datastore := &store{db}
	if err := datastore.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return datastore, nil
}

func (d *store) Close() error {
	return d.db.Close()
}

// isUniqueViolation reports whether err is a unique/primary key constraint
// failure. These are expected under concurrent toggles and first-contact
// sends; callers reconcile them rather than surfacing them.
func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func (d *store) createTables() error {
	_, err := d.db.Exec(`create table if not exists user(
		ID             text not null primary key,
		CreatedAt      DATETIME not null,
		UpdatedAt      DATETIME null,
		Status         tinyint not null default 0,
		Handle         text not null,
		Profile        text not null default '',
		FollowerCount  integer not null default 0,
		FollowingCount integer not null default 0,
		IsOnline       boolean not null default 0,
		LastSeenAt     DATETIME null
	)`)
	if err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists entity(
		ID            text not null primary key,
		OwnerID       text not null,
		Kind          text not null,
		CreatedAt     DATETIME not null,
		LikeCount     integer not null default 0,
		BookmarkCount integer not null default 0,
		IsActive      boolean not null default 1
	)`)
	if err != nil {
		return fmt.Errorf("creating entity table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists relationship(
		ActorID   text not null,
		TargetID  text not null,
		Kind      text not null,
		CreatedAt DATETIME not null,
		primary key (ActorID, TargetID, Kind)
	)`)
	if err != nil {
		return fmt.Errorf("creating relationship table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists conversation(
		ID            text not null primary key,
		Type          text not null,
		PairKey       text null,
		CreatedAt     DATETIME not null,
		LastMessageID text null,
		LastMessageAt DATETIME null,
		LastSeq       integer not null default 0,
		IsActive      boolean not null default 1
	)`)
	if err != nil {
		return fmt.Errorf("creating conversation table: %w", err)
	}

	// partial index: uniqueness holds for active conversations only, so a
	// deactivated pair can start over
	_, err = d.db.Exec(`create unique index if not exists idx_conversation_pairkey
		on conversation (PairKey) where IsActive = 1`)
	if err != nil {
		return fmt.Errorf("creating conversation pair index: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists conversation_participant(
		ConversationID text not null,
		UserID         text not null,
		JoinedAt       DATETIME not null,
		primary key (ConversationID, UserID)
	)`)
	if err != nil {
		return fmt.Errorf("creating conversation_participant table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists message(
		ID             text not null primary key,
		ConversationID text not null,
		Seq            integer not null,
		SenderID       text not null,
		Content        text not null,
		ContentType    text not null default 'text',
		CreatedAt      DATETIME not null,
		IsEdited       boolean not null default 0,
		EditedAt       DATETIME null,
		PriorContent   text null,
		IsDeleted      boolean not null default 0,
		DeletedAt      DATETIME null,
		ReplyToID      text null,
		unique (ConversationID, Seq)
	)`)
	if err != nil {
		return fmt.Errorf("creating message table: %w", err)
	}

	_, err = d.db.Exec(`create index if not exists idx_message_conversation
		on message (ConversationID, CreatedAt)`)
	if err != nil {
		return fmt.Errorf("creating message index: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists message_receipt(
		MessageID text not null,
		UserID    text not null,
		Kind      text not null,
		MarkedAt  DATETIME not null,
		primary key (MessageID, UserID, Kind)
	)`)
	if err != nil {
		return fmt.Errorf("creating message_receipt table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists message_hide(
		MessageID text not null,
		UserID    text not null,
		primary key (MessageID, UserID)
	)`)
	if err != nil {
		return fmt.Errorf("creating message_hide table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists message_reaction(
		MessageID text not null,
		UserID    text not null,
		Emoji     text not null,
		CreatedAt DATETIME not null,
		primary key (MessageID, UserID, Emoji)
	)`)
	if err != nil {
		return fmt.Errorf("creating message_reaction table: %w", err)
	}

	_, err = d.db.Exec(`create table if not exists notification(
		ID               text not null primary key,
		RecipientID      text not null,
		SenderID         text not null,
		Type             text not null,
		EntityRef        text not null default '',
		Priority         tinyint not null default 1,
		IsRead           boolean not null default 0,
		ReadAt           DATETIME null,
		IsArchived       boolean not null default 0,
		CreatedAt        DATETIME not null,
		ExpiresAt        DATETIME not null,
		InAppDeliveredAt DATETIME null,
		EmailDeliveredAt DATETIME null,
		PushDeliveredAt  DATETIME null
	)`)
	if err != nil {
		return fmt.Errorf("creating notification table: %w", err)
	}

	_, err = d.db.Exec(`create index if not exists idx_notification_recipient
		on notification (RecipientID, ExpiresAt)`)
	if err != nil {
		return fmt.Errorf("creating notification index: %w", err)
	}

	return nil
}
