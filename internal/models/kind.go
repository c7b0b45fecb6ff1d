// Package models defines the entity model shared by the local store,
// the mutation queue and the remote store client: entity kinds, queue
// operations and the typed records that travel between stores.
package models

import "fmt"

// EntityKind identifies one of the synchronized collections. The string
// value doubles as the remote collection segment in request paths and as
// the discriminator stored in queue rows.
type EntityKind string

const (
	KindVehicle            EntityKind = "vehicle"
	KindExpense            EntityKind = "expense"
	KindSale               EntityKind = "sale"
	KindDebt               EntityKind = "debt"
	KindDebtPayment        EntityKind = "debt_payment"
	KindClient             EntityKind = "client"
	KindClientInteraction  EntityKind = "client_interaction"
	KindClientReminder     EntityKind = "client_reminder"
	KindDealerUser         EntityKind = "dealer_user"
	KindAccount            EntityKind = "account"
	KindAccountTransaction EntityKind = "account_transaction"
	KindExpenseTemplate    EntityKind = "expense_template"
)

// AllKinds lists every synchronized kind in pull order. Parent collections
// come before the ones that reference them so a fresh pull never merges a
// child row whose parent is still missing locally.
var AllKinds = []EntityKind{
	KindVehicle,
	KindAccount,
	KindDealerUser,
	KindExpenseTemplate,
	KindClient,
	KindClientInteraction,
	KindClientReminder,
	KindExpense,
	KindSale,
	KindDebt,
	KindDebtPayment,
	KindAccountTransaction,
}

// ParseEntityKind validates a stored or wire kind value.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

func (k EntityKind) String() string { return string(k) }

// Collection returns the remote collection path segment for the kind.
func (k EntityKind) Collection() string {
	switch k {
	case KindVehicle:
		return "vehicles"
	case KindExpense:
		return "expenses"
	case KindSale:
		return "sales"
	case KindDebt:
		return "debts"
	case KindDebtPayment:
		return "debt-payments"
	case KindClient:
		return "clients"
	case KindClientInteraction:
		return "client-interactions"
	case KindClientReminder:
		return "client-reminders"
	case KindDealerUser:
		return "dealer-users"
	case KindAccount:
		return "accounts"
	case KindAccountTransaction:
		return "account-transactions"
	case KindExpenseTemplate:
		return "expense-templates"
	default:
		return string(k)
	}
}
