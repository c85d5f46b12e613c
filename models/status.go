package models

import "strings"

type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusPending       InvoiceStatus = "PENDING"
	StatusSent          InvoiceStatus = "SENT"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
	StatusOverdue       InvoiceStatus = "OVERDUE"
	StatusCancelled     InvoiceStatus = "CANCELLED"
	StatusRefunded      InvoiceStatus = "REFUNDED"
)

var invoiceStatuses = []InvoiceStatus{
	StatusDraft, StatusPending, StatusSent, StatusPartiallyPaid,
	StatusPaid, StatusOverdue, StatusCancelled, StatusRefunded,
}

func (s InvoiceStatus) IsValid() bool {
	for _, v := range invoiceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no explicit transition may leave s.
func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled || s == StatusRefunded
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// ParseInvoiceStatus accepts the canonical upper-case names in any case.
func ParseInvoiceStatus(v string) (InvoiceStatus, bool) {
	s := InvoiceStatus(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.IsValid()
}

type PaymentMethod string

const (
	MethodEFT        PaymentMethod = "EFT"
	MethodCash       PaymentMethod = "CASH"
	MethodCreditCard PaymentMethod = "CREDIT_CARD"
	MethodDebitCard  PaymentMethod = "DEBIT_CARD"
	MethodCheque     PaymentMethod = "CHEQUE"
	MethodSnapScan   PaymentMethod = "SNAPSCAN"
	MethodZapper     PaymentMethod = "ZAPPER"
	MethodPayFast    PaymentMethod = "PAYFAST"
	MethodOther      PaymentMethod = "OTHER"
)

var paymentMethods = []PaymentMethod{
	MethodEFT, MethodCash, MethodCreditCard, MethodDebitCard, MethodCheque,
	MethodSnapScan, MethodZapper, MethodPayFast, MethodOther,
}

func (m PaymentMethod) IsValid() bool {
	for _, v := range paymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

func ParsePaymentMethod(v string) (PaymentMethod, bool) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(v)))
	return m, m.IsValid()
}
