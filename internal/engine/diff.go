package engine

import "github.com/ikramzafar0343/style-sathi/internal/domain"

type opKind int

const (
	opRemove opKind = iota + 1
	opUpdate
)

func (k opKind) String() string {
	switch k {
	case opRemove:
		return "remove-line"
	case opUpdate:
		return "update-line"
	default:
		return "unknown"
	}
}

// remoteOp is one remote call needed to bring the server cart in line with a
// local cart replacement.
type remoteOp struct {
	kind      opKind
	productID domain.ProductID
	lineID    int64
	quantity  int
}

// diffCart walks prev first and emits a remove for every synced line that is
// missing from next, then walks next and emits an update for every synced
// line. Lines whose product id is not numeric never produce remote calls.
func diffCart(prev, next domain.Cart) []remoteOp {
	var ops []remoteOp

	for _, p := range prev.Lines {
		if !remoteEligible(p) {
			continue
		}
		if i, ok := next.Find(p.ProductID); ok && next.Lines[i].Quantity > 0 {
			continue
		}
		ops = append(ops, remoteOp{kind: opRemove, productID: p.ProductID, lineID: *p.RemoteLineID})
	}

	for _, n := range next.Lines {
		if !remoteEligible(n) || n.Quantity <= 0 {
			continue
		}
		ops = append(ops, remoteOp{kind: opUpdate, productID: n.ProductID, lineID: *n.RemoteLineID, quantity: n.Quantity})
	}

	return ops
}

func remoteEligible(l domain.CartLine) bool {
	if l.RemoteLineID == nil {
		return false
	}
	_, ok := l.ProductID.Numeric()
	return ok
}
