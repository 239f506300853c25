// Package classify turns raw source records into canonical transactions.
//
// A record is one of three kinds: a charge (income), a payment for a named
// item (expense) or something we don't recognise. Classification is pure, it
// only looks at the record's description and amount.
package classify

import (
	"fmt"
	"regexp"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// Kind is the outcome of classifying one record.
type Kind int

const (
	Unrecognized Kind = iota
	Income
	Expense
)

func (k Kind) String() string {
	switch k {
	case Income:
		return "income"
	case Expense:
		return "expense"
	default:
		return "unrecognized"
	}
}

// Result holds the transaction for Income and Expense, and a Reason for
// Unrecognized.
type Result struct {
	Kind        Kind
	Transaction *domain.Transaction
	Reason      string
}

// Rules configures the description patterns and the categories assigned to
// each kind.
type Rules struct {
	// ChargeMarker is the exact description of a top-up.
	ChargeMarker string

	// PaymentPattern must have exactly one capture group: the item name.
	PaymentPattern string

	IncomeCategory  domain.Category
	ExpenseCategory domain.Category
}

// DefaultRules matches PASELI history descriptions.
func DefaultRules() Rules {
	return Rules{
		ChargeMarker:    "チャージ",
		PaymentPattern:  `\A支払い\((.+?)\)\z`,
		IncomeCategory:  domain.Category{Large: "未分類", Medium: "未分類"},
		ExpenseCategory: domain.Category{Large: "趣味・娯楽", Medium: "映画・音楽・ゲーム"},
	}
}

type Classifier struct {
	rules   Rules
	payment *regexp.Regexp
}

// New compiles rules into a Classifier.
func New(rules Rules) (*Classifier, error) {
	if rules.ChargeMarker == "" {
		return nil, fmt.Errorf("charge marker must not be empty")
	}

	payment, err := regexp.Compile(rules.PaymentPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling payment pattern: %w", err)
	}
	if payment.NumSubexp() != 1 {
		return nil, fmt.Errorf("payment pattern %q needs exactly one capture group, has %d", rules.PaymentPattern, payment.NumSubexp())
	}

	return &Classifier{rules: rules, payment: payment}, nil
}

// Classify decides what rec is. Zero amounts are never turned into
// transactions.
func (c *Classifier) Classify(rec *domain.Record) Result {
	if rec.Amount == 0 {
		return Result{Kind: Unrecognized, Reason: fmt.Sprintf("zero amount transaction: %s", rec.Description)}
	}

	amount := rec.Amount
	if amount < 0 {
		amount = -amount
	}

	if rec.Description == c.rules.ChargeMarker {
		category := c.rules.IncomeCategory
		return Result{
			Kind: Income,
			Transaction: &domain.Transaction{
				Date:        domain.DateOf(rec.Date),
				Description: rec.Description,
				Amount:      amount,
				Category:    &category,
			},
		}
	}

	if m := c.payment.FindStringSubmatch(rec.Description); m != nil {
		category := c.rules.ExpenseCategory
		return Result{
			Kind: Expense,
			Transaction: &domain.Transaction{
				Date:        domain.DateOf(rec.Date),
				Description: m[1],
				Amount:      -amount,
				Category:    &category,
			},
		}
	}

	return Result{Kind: Unrecognized, Reason: fmt.Sprintf("unrecognized transaction description: %s", rec.Description)}
}
