package projection

import (
	"fmt"
	"sort"

	"github.com/riteshkumar/ledger-replay/internal/errors"
	"github.com/riteshkumar/ledger-replay/internal/models"
)

// ActivityProjector counts the events seen per client, whether or not a
// balance projector accepted them.
type ActivityProjector struct {
	clients map[models.ClientID]*models.ClientActivity
}

func NewActivityProjector() *ActivityProjector {
	return &ActivityProjector{
		clients: make(map[models.ClientID]*models.ClientActivity),
	}
}

func (p *ActivityProjector) Project(event models.Event) error {
	activity, ok := p.clients[event.Client]
	if !ok {
		activity = &models.ClientActivity{Client: event.Client}
		p.clients[event.Client] = activity
	}

	switch event.Kind {
	case models.KindDeposit:
		activity.Deposits++
	case models.KindWithdrawal:
		activity.Withdrawals++
	case models.KindDispute:
		activity.Disputes++
	case models.KindResolve:
		activity.Resolves++
	case models.KindChargeback:
		activity.Chargebacks++
	default:
		return errors.NewValidationError("type", fmt.Sprintf("unknown event type %q", event.Kind))
	}
	return nil
}

func (p *ActivityProjector) Activity() []models.ClientActivity {
	out := make([]models.ClientActivity, 0, len(p.clients))
	for _, activity := range p.clients {
		out = append(out, *activity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}
