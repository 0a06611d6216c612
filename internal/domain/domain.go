package domain

// Label is the quality label a manager assigns to a client.
type Label string

const (
	LabelOtimo Label = "otimo"
	LabelBom   Label = "bom"
	LabelMedio Label = "medio"
	LabelRuim  Label = "ruim"
	LabelNone  Label = ""
)

// Classification is the derived customer-success risk tier.
type Classification string

const (
	ClassNormal    Classification = "normal"
	ClassAlerta    Classification = "alerta"
	ClassCritico   Classification = "critico"
	ClassEncerrado Classification = "encerrado"
)

// Client lifecycle statuses.
const (
	StatusActive     = "active"
	StatusOnboarding = "onboarding"
	StatusPaused     = "paused"
	StatusChurned    = "churned"
)

type Client struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	ManagerID            string  `json:"manager_id"`
	Label                Label   `json:"label,omitempty"`
	Classification       string  `json:"cs_classification"`
	ClassificationReason *string `json:"classification_reason,omitempty"`
	Status               string  `json:"status" enum:"active,onboarding,paused,churned"`
	LastContactAt        *string `json:"last_contact_at,omitempty" format:"date-time"`
	Archived             bool    `json:"archived"`
	ArchivedAt           *string `json:"archived_at,omitempty" format:"date-time"`
	MonthlyValue         float64 `json:"monthly_value"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	UpdatedAt            string  `json:"updated_at" format:"date-time"`
}

// ClientProduct is a per-product value row, upserted on (client_id, product_slug).
type ClientProduct struct {
	ClientID    string  `json:"client_id"`
	ProductSlug string  `json:"product_slug"`
	Value       float64 `json:"value"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// TrackingRecord holds the last time a client's pipeline card was moved.
// One row per client; "moved today" is derived from LastMovedAt, never stored.
type TrackingRecord struct {
	ClientID        string  `json:"client_id"`
	ManagerID       string  `json:"manager_id"`
	LastMovedAt     string  `json:"last_moved_at" format:"date-time"`
	Justification   *string `json:"justification,omitempty"`
	JustificationAt *string `json:"justification_at,omitempty" format:"date-time"`
}

// TaskKind discriminates the department a task belongs to.
type TaskKind string

const (
	KindAds        TaskKind = "ads"
	KindComercial  TaskKind = "comercial"
	KindDepartment TaskKind = "department"
)

// Task statuses.
const (
	TaskTodo  = "todo"
	TaskDoing = "doing"
	TaskDone  = "done"
)

// TaskItem is the common shape shared by ads, comercial and department tasks.
type TaskItem struct {
	ID              string   `json:"id"`
	Kind            TaskKind `json:"kind" enum:"ads,comercial,department"`
	Title           string   `json:"title"`
	OwnerID         string   `json:"owner_id"`
	DueDate         string   `json:"due_date" format:"date"`
	Status          string   `json:"status" enum:"todo,doing,done"`
	Archived        bool     `json:"archived"`
	Justification   *string  `json:"justification,omitempty"`
	JustificationAt *string  `json:"justification_at,omitempty" format:"date-time"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

type OKR struct {
	ID           string   `json:"id"`
	Type         string   `json:"type" enum:"annual,weekly"`
	Title        string   `json:"title"`
	TargetValue  *float64 `json:"target_value,omitempty"`
	CurrentValue *float64 `json:"current_value,omitempty"`
	Status       string   `json:"status" enum:"active,completed,archived"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
	UpdatedAt    string   `json:"updated_at" format:"date-time"`
}

type Manager struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts" format:"date-time"`
	Type     string `json:"type"`
	Table    string `json:"table"`
	EntityID string `json:"entity_id,omitempty"`
	ActorID  string `json:"actor_id"`
	Payload  string `json:"payload_json"`
}
