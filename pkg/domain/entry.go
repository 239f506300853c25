package domain

import (
	"encoding/json"
	"time"
)

// Entry is one row of the destination ledger.
type Entry struct {
	ID     string `json:"id,omitempty"`
	Wallet string `json:"wallet,omitempty"`

	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	Amount         int64     `json:"amount"`
	CategoryLarge  string    `json:"category_large"`
	CategoryMedium string    `json:"category_medium"`
	Memo           string    `json:"memo"`
}

func (e *Entry) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// CreateCommand asks for one new entry in the destination ledger.
// Amount is always a positive magnitude, Direction carries the sign.
type CreateCommand struct {
	Wallet         string    `json:"wallet"`
	Direction      Direction `json:"direction"`
	Date           time.Time `json:"date"`
	Description    string    `json:"description"`
	Amount         int64     `json:"amount"`
	LargeCategory  string    `json:"large_category"`
	MediumCategory string    `json:"medium_category"`
}

// NewCreateCommand builds the command that would mirror tx into wallet.
func NewCreateCommand(wallet string, tx *Transaction) *CreateCommand {
	cmd := &CreateCommand{
		Wallet:      wallet,
		Direction:   tx.Direction(),
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Magnitude(),
	}
	if tx.Category != nil {
		cmd.LargeCategory = tx.Category.Large
		cmd.MediumCategory = tx.Category.Medium
	}
	return cmd
}

// CreateRequest is a CreateCommand whose category names have been resolved
// against the destination catalog. Amount is signed: negative for expenses.
type CreateRequest struct {
	Wallet      string
	Direction   Direction
	Date        time.Time
	Description string
	Amount      int64
	LargeID     int
	MediumID    int
}

// NewCreateRequest attaches resolved category ids to cmd.
func NewCreateRequest(cmd *CreateCommand, largeID, mediumID int) *CreateRequest {
	amount := cmd.Amount
	if cmd.Direction == Expense {
		amount = -amount
	}
	return &CreateRequest{
		Wallet:      cmd.Wallet,
		Direction:   cmd.Direction,
		Date:        cmd.Date,
		Description: cmd.Description,
		Amount:      amount,
		LargeID:     largeID,
		MediumID:    mediumID,
	}
}
