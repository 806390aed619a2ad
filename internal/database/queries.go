package database

import (
	"time"
)

func (db *PgCrewChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (name, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, name, email, created_at, updated_at",
		params.Name,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgCrewChatRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgCrewChatRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, email, password_hash, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Name,
		&a.EmailAddress,
		&a.PasswordHash,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

func (db *PgCrewChatRepository) CreateProject(params CreateProjectParams) (Project, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Project{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO projects (external_id, name, description, status, project_type, creator_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $7) "+
			"RETURNING id, external_id, name, description, status, project_type, creator_id, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.Description,
		params.Status,
		params.ProjectType,
		params.CreatorId,
		time.Now().UTC(),
	)

	var p Project
	err = res.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.ProjectType,
		&p.CreatorId,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Project{}, err
	}

	// the creator is always a member of their own project's room
	_, err = tx.Exec(
		"INSERT INTO project_members (project_id, account_id, role_title, created_at) VALUES ($1, $2, $3, $4)",
		p.Id,
		params.CreatorId,
		"creator",
		time.Now().UTC(),
	)
	if err != nil {
		return Project{}, err
	}

	if err = tx.Commit(); err != nil {
		return Project{}, err
	}

	return p, err
}

func (db *PgCrewChatRepository) GetProjectByExternalId(externalId string) (Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, description, status, project_type, creator_id, created_at, updated_at "+
			"FROM projects WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var p Project
	err := row.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.ProjectType,
		&p.CreatorId,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgCrewChatRepository) ListOwnedProjects(accountId int) ([]Project, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, name, description, status, project_type, creator_id, created_at, updated_at "+
			"FROM projects WHERE creator_id = $1 ORDER BY created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err = rows.Scan(
			&p.Id,
			&p.ExternalId,
			&p.Name,
			&p.Description,
			&p.Status,
			&p.ProjectType,
			&p.CreatorId,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			break
		}

		projects = append(projects, p)
	}

	return projects, err
}

func (db *PgCrewChatRepository) ListMemberProjects(accountId int) ([]MemberProject, error) {
	rows, err := db.conn.Query(
		"SELECT p.id, p.external_id, p.name, p.description, p.status, p.project_type, p.creator_id, "+
			"a.name, p.created_at, p.updated_at, m.role_title "+
			"FROM project_members m "+
			"JOIN projects p ON p.id = m.project_id "+
			"JOIN accounts a ON a.id = p.creator_id "+
			"WHERE m.account_id = $1 AND p.creator_id != $1 "+
			"ORDER BY p.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []MemberProject
	for rows.Next() {
		var mp MemberProject
		if err = rows.Scan(
			&mp.Id,
			&mp.ExternalId,
			&mp.Name,
			&mp.Description,
			&mp.Status,
			&mp.ProjectType,
			&mp.CreatorId,
			&mp.CreatorName,
			&mp.CreatedAt,
			&mp.UpdatedAt,
			&mp.MyRole,
		); err != nil {
			break
		}

		projects = append(projects, mp)
	}

	return projects, err
}

func (db *PgCrewChatRepository) AddMember(projectId, accountId int, roleTitle string) (Membership, error) {
	res := db.conn.QueryRow(
		"INSERT INTO project_members (project_id, account_id, role_title, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, project_id, account_id, role_title, created_at",
		projectId,
		accountId,
		roleTitle,
		time.Now().UTC(),
	)

	var m Membership
	err := res.Scan(
		&m.Id,
		&m.ProjectId,
		&m.AccountId,
		&m.RoleTitle,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgCrewChatRepository) IsMember(projectId, accountId int) bool {
	res := db.conn.QueryRow(
		"SELECT id FROM project_members WHERE project_id = $1 AND account_id = $2 LIMIT 1",
		projectId,
		accountId,
	)

	var id int
	return res.Scan(&id) == nil
}

func (db *PgCrewChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (id, project_id, sender_id, content, attachments, sent_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, project_id, sender_id, content, attachments, is_deleted, sent_at, edited_at",
		params.Id,
		params.ProjectId,
		params.SenderId,
		params.Content,
		params.Attachments,
		params.SentAt,
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ProjectId,
		&msg.SenderId,
		&msg.Content,
		&msg.Attachments,
		&msg.IsDeleted,
		&msg.SentAt,
		&msg.EditedAt,
	)

	return msg, err
}

func (db *PgCrewChatRepository) GetMessage(messageId string) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.project_id, m.sender_id, a.name, m.content, m.attachments, m.is_deleted, m.sent_at, m.edited_at "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.ProjectId,
		&msg.SenderId,
		&msg.SenderName,
		&msg.Content,
		&msg.Attachments,
		&msg.IsDeleted,
		&msg.SentAt,
		&msg.EditedAt,
	)

	return msg, err
}

func (db *PgCrewChatRepository) MarkMessageDeleted(messageId string) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_deleted = TRUE WHERE id = $1",
		messageId,
	)

	return err
}

// GetMessages returns up to limit messages for a project sent strictly
// before the cursor, oldest first. A zero cursor means "latest page".
func (db *PgCrewChatRepository) GetMessages(projectId int, before time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	cursor := before
	if cursor.IsZero() {
		cursor = time.Now().UTC().Add(time.Hour)
	}

	rows, err := db.conn.Query(
		"SELECT id, project_id, sender_id, sender_name, content, attachments, is_deleted, sent_at, edited_at FROM ("+
			"SELECT m.id, m.project_id, m.sender_id, a.name AS sender_name, m.content, m.attachments, m.is_deleted, m.sent_at, m.edited_at "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.project_id = $1 AND m.sent_at < $2 "+
			"ORDER BY m.sent_at DESC LIMIT $3"+
			") page ORDER BY sent_at ASC",
		projectId,
		cursor,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.ProjectId,
			&msg.SenderId,
			&msg.SenderName,
			&msg.Content,
			&msg.Attachments,
			&msg.IsDeleted,
			&msg.SentAt,
			&msg.EditedAt,
		); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}
