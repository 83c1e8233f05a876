package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// checkRole rejects messages whose role the conversation cannot replay.
func checkRole(m models.ChatMessage) error {
	if !models.IsValidRole(m.Role) {
		return fmt.Errorf("%w: %q", models.ErrInvalidRole, m.Role)
	}
	return nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (models.EmergencyProfile, error) {
	var p models.EmergencyProfile
	var subjectPhone, guardianEmail sql.NullString
	err := row.Scan(&p.SubjectName, &subjectPhone, &p.GuardianName, &p.GuardianPhone, &guardianEmail)
	if err != nil {
		return p, err
	}
	p.SubjectPhone = subjectPhone.String
	p.GuardianEmail = guardianEmail.String
	return p, nil
}

func scanMessages(rows *sql.Rows) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message failed: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages failed: %w", err)
	}
	return msgs, nil
}

func scanReceipts(rows *sql.Rows) ([]models.Receipt, error) {
	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var to, providerID, errText sql.NullString
		if err := rows.Scan(&r.AlertID, &r.Channel, &to, &r.Status, &providerID, &errText, &r.Time); err != nil {
			return nil, fmt.Errorf("scan receipt failed: %w", err)
		}
		r.To = to.String
		r.ProviderID = providerID.String
		r.Error = errText.String
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts failed: %w", err)
	}
	return receipts, nil
}
