package domain

import "time"

// OrderStatus enumerates lifecycle states for installation orders.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusOnHold     OrderStatus = "ON_HOLD"
	OrderStatusClosed     OrderStatus = "CLOSED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusClosed || s == OrderStatusCancelled
}

// Stage enumerates the installation workflow phases.
type Stage string

const (
	StageSurvey         Stage = "SURVEY"
	StageCablePull      Stage = "PENARIKAN_KABEL"
	StageONTInstall     Stage = "INSTALASI_ONT"
	StageEvidenceUpload Stage = "EVIDENCE_UPLOAD"
	StageCompleted      Stage = "COMPLETED"
)

// WorkStages lists the four operator-driven stages in mandatory order.
var WorkStages = []Stage{StageSurvey, StageCablePull, StageONTInstall, StageEvidenceUpload}

// DisplayName returns the human-readable stage label.
func (s Stage) DisplayName() string {
	switch s {
	case StageSurvey:
		return "Survey Lokasi"
	case StageCablePull:
		return "Penarikan Kabel"
	case StageONTInstall:
		return "Instalasi ONT"
	case StageEvidenceUpload:
		return "Upload Evidence"
	case StageCompleted:
		return "Selesai"
	default:
		return string(s)
	}
}

// NextWorkStage returns the stage after s, or false when s is the final work stage.
func NextWorkStage(s Stage) (Stage, bool) {
	for i, stage := range WorkStages {
		if stage == s && i+1 < len(WorkStages) {
			return WorkStages[i+1], true
		}
	}
	return "", false
}

// StageIndex returns the position of a work stage, or -1.
func StageIndex(s Stage) int {
	for i, stage := range WorkStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// SiteCodes are the serviceable STO site codes.
var SiteCodes = []string{
	"CBB", "CWA", "GAN", "JTN", "KLD", "KRG", "PDK", "PGB",
	"PGG", "PSR", "RMG", "BIN", "CPE", "JAG", "KAL", "KBY",
	"KMG", "PSM", "TBE", "NAS",
}

// TransactionTypes are the supported order transaction kinds.
var TransactionTypes = []string{
	"Disconnect", "Modify", "New Install Existing", "New Install JT", "New Install", "PDA",
}

// ServiceTypes are the supported service products.
var ServiceTypes = []string{"Astinet", "Metro", "VPN IP", "IP Transit", "SIP Trunk"}

// ValidSiteCode reports whether code is a known STO.
func ValidSiteCode(code string) bool {
	return containsString(SiteCodes, code)
}

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	return containsString(TransactionTypes, t)
}

// ValidServiceType reports whether t is a known service type.
func ValidServiceType(t string) bool {
	return containsString(ServiceTypes, t)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Order is the aggregate for a customer installation.
type Order struct {
	ID               int64
	Number           string
	CustomerName     string
	CustomerAddress  string
	CustomerContact  string
	Site             string
	TransactionType  string
	ServiceType      string
	CreatedBy        int64
	AssignedTo       *int64
	Status           OrderStatus
	CurrentStage     Stage
	SLADeadline      time.Time
	HoldStartedAt    *time.Time
	HoldEndedAt      *time.Time
	EvidenceComplete bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// HoldDuration returns time spent on hold, zero unless both ends are recorded.
func (o *Order) HoldDuration() time.Duration {
	if o.HoldStartedAt == nil || o.HoldEndedAt == nil {
		return 0
	}
	d := o.HoldEndedAt.Sub(*o.HoldStartedAt)
	if d < 0 {
		return 0
	}
	return d
}
