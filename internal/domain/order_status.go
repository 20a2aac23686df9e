package domain

// ClientStatus is the seller-facing order status vocabulary.
type ClientStatus string

const (
	ClientStatusPending    ClientStatus = "pending"
	ClientStatusProcessing ClientStatus = "processing"
	ClientStatusShipped    ClientStatus = "shipped"
	ClientStatusDelivered  ClientStatus = "delivered"
	ClientStatusCancelled  ClientStatus = "cancelled"
)

// BackendStatus is the order API's status vocabulary.
type BackendStatus string

const (
	BackendStatusConfirmed  BackendStatus = "confirmed"
	BackendStatusProcessing BackendStatus = "processing"
	BackendStatusInTransit  BackendStatus = "in_transit"
	BackendStatusDelivered  BackendStatus = "delivered"
	BackendStatusCancelled  BackendStatus = "cancelled"
)

var ClientStatuses = []ClientStatus{
	ClientStatusPending,
	ClientStatusProcessing,
	ClientStatusShipped,
	ClientStatusDelivered,
	ClientStatusCancelled,
}

// StatusPair maps one client status to the backend status it is stored as.
type StatusPair struct {
	Client  ClientStatus
	Backend BackendStatus
}

// statusPairs is the only place the two vocabularies differ; statuses not
// listed here are spelled the same on both sides.
var statusPairs = []StatusPair{
	{Client: ClientStatusShipped, Backend: BackendStatusInTransit},
	{Client: ClientStatusPending, Backend: BackendStatusConfirmed},
}

// ToBackendStatus translates a status chosen by a seller before it is written
// to the order API.
func ToBackendStatus(s ClientStatus) BackendStatus {
	for _, p := range statusPairs {
		if p.Client == s {
			return p.Backend
		}
	}
	return BackendStatus(s)
}

// FromBackendStatus normalizes a status read from the order API for display.
func FromBackendStatus(s BackendStatus) ClientStatus {
	for _, p := range statusPairs {
		if p.Backend == s {
			return p.Client
		}
	}
	return ClientStatus(s)
}

func (s ClientStatus) Valid() bool {
	for _, c := range ClientStatuses {
		if c == s {
			return true
		}
	}
	return false
}

func (s ClientStatus) String() string {
	return string(s)
}

func (s BackendStatus) String() string {
	return string(s)
}
