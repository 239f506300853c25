package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/ledgersync/pkg/domain"
)

func newClassifier(t *testing.T) *Classifier {
	c, err := New(DefaultRules())
	require.NoError(t, err)
	return c
}

func TestClassifyCharge(t *testing.T) {
	c := newClassifier(t)

	res := c.Classify(&domain.Record{Date: domain.Day(2024, time.May, 3), Description: "チャージ", Amount: 3000})

	require.Equal(t, Income, res.Kind)
	assert.Equal(t, &domain.Transaction{
		Date:        domain.Day(2024, time.May, 3),
		Description: "チャージ",
		Amount:      3000,
		Category:    &domain.Category{Large: "未分類", Medium: "未分類"},
	}, res.Transaction)
}

func TestClassifyPayment(t *testing.T) {
	c := newClassifier(t)

	res := c.Classify(&domain.Record{Date: domain.Day(2024, time.May, 10), Description: "支払い(映画)", Amount: 1500})

	require.Equal(t, Expense, res.Kind)
	assert.Equal(t, "映画", res.Transaction.Description)
	assert.Equal(t, int64(-1500), res.Transaction.Amount)
	assert.Equal(t, domain.Expense, res.Transaction.Direction())
	assert.Equal(t, &domain.Category{Large: "趣味・娯楽", Medium: "映画・音楽・ゲーム"}, res.Transaction.Category)
}

func TestClassifyPaymentCaptureIsLazy(t *testing.T) {
	c := newClassifier(t)

	res := c.Classify(&domain.Record{Date: domain.Day(2024, time.May, 10), Description: "支払い(beatmania IIDX (EX))", Amount: 200})

	require.Equal(t, Expense, res.Kind)
	assert.Equal(t, "beatmania IIDX (EX)", res.Transaction.Description)
}

func TestClassifyUnrecognized(t *testing.T) {
	c := newClassifier(t)

	for _, desc := range []string{"謎の取引", "チャージ ", "支払い()", "返金(映画)", "x支払い(映画)", "支払い(映画)x"} {
		res := c.Classify(&domain.Record{Date: domain.Day(2024, time.May, 10), Description: desc, Amount: 100})
		assert.Equal(t, Unrecognized, res.Kind, desc)
		assert.Nil(t, res.Transaction, desc)
		assert.Contains(t, res.Reason, desc)
	}
}

func TestClassifyZeroAmount(t *testing.T) {
	c := newClassifier(t)

	res := c.Classify(&domain.Record{Date: domain.Day(2024, time.May, 3), Description: "チャージ", Amount: 0})

	assert.Equal(t, Unrecognized, res.Kind)
	assert.Nil(t, res.Transaction)
}

func TestClassifyIsPure(t *testing.T) {
	c := newClassifier(t)
	rec := &domain.Record{Date: domain.Day(2024, time.May, 10), Description: "支払い(映画)", Amount: 1500}

	first := c.Classify(rec)
	second := c.Classify(rec)

	assert.Equal(t, first, second)
	assert.Equal(t, "支払い(映画)", rec.Description)
	assert.Equal(t, int64(1500), rec.Amount)
}

func TestNewRejectsBadRules(t *testing.T) {
	rules := DefaultRules()
	rules.PaymentPattern = `支払い\(.+\)`
	_, err := New(rules)
	assert.Error(t, err)

	rules = DefaultRules()
	rules.PaymentPattern = `(`
	_, err = New(rules)
	assert.Error(t, err)

	rules = DefaultRules()
	rules.ChargeMarker = ""
	_, err = New(rules)
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "income", Income.String())
	assert.Equal(t, "expense", Expense.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
