package domain

// Lang selects a display language for labels.
type Lang string

const (
	LangRU Lang = "ru"
	LangEN Lang = "en"
)

// Label is a display string pair. Keys stay ASCII enum values.
type Label struct {
	RU string `json:"ru" yaml:"ru"`
	EN string `json:"en" yaml:"en"`
}

func (l Label) In(lang Lang) string {
	if lang == LangEN {
		return l.EN
	}
	return l.RU
}

var statusLabels = map[Status]Label{
	StatusDraft:                {RU: "Черновик", EN: "Draft"},
	StatusRegistrationPending:  {RU: "Ожидает регистрации", EN: "Registration pending"},
	StatusMedicalReview:        {RU: "Медицинский осмотр", EN: "Medical review"},
	StatusChiefApproval:        {RU: "Утверждение главврачом", EN: "Chief doctor approval"},
	StatusDispatcherAssignment: {RU: "Назначение диспетчером", EN: "Dispatcher assignment"},
	StatusInProduction:         {RU: "В производстве", EN: "In production"},
	StatusReadyForFitting:      {RU: "Готов к примерке", EN: "Ready for fitting"},
	StatusCompleted:            {RU: "Выполнен", EN: "Completed"},
	StatusRejected:             {RU: "Отклонён", EN: "Rejected"},
	StatusReturnedForRevision:  {RU: "Возвращён на доработку", EN: "Returned for revision"},
}

var roleLabels = map[Role]Label{
	RoleRegistration:   {RU: "Регистратура", EN: "Registration"},
	RoleMedical:        {RU: "Медицинский отдел", EN: "Medical department"},
	RoleChiefDoctor:    {RU: "Главный врач", EN: "Chief doctor"},
	RoleDispatcher:     {RU: "Диспетчер", EN: "Dispatcher"},
	RoleWorkshop:       {RU: "Цех", EN: "Workshop"},
	RoleWarehouse:      {RU: "Склад", EN: "Warehouse"},
	RoleAdministration: {RU: "Администрация", EN: "Administration"},
}

var actionLabels = map[Action]Label{
	ActionSendToMedical:      {RU: "Отправить в медотдел", EN: "Send to medical"},
	ActionSendToChief:        {RU: "Отправить главврачу", EN: "Send to chief doctor"},
	ActionApprove:            {RU: "Утвердить", EN: "Approve"},
	ActionReject:             {RU: "Отклонить", EN: "Reject"},
	ActionReturnForRevision:  {RU: "Вернуть на доработку", EN: "Return for revision"},
	ActionAssignToProduction: {RU: "Передать в производство", EN: "Assign to production"},
	ActionMarkReady:          {RU: "Отметить готовым", EN: "Mark ready"},
	ActionComplete:           {RU: "Завершить", EN: "Complete"},
}

var priorityLabels = map[Priority]Label{
	PriorityLow:    {RU: "Низкий", EN: "Low"},
	PriorityMedium: {RU: "Средний", EN: "Medium"},
	PriorityHigh:   {RU: "Высокий", EN: "High"},
	PriorityUrgent: {RU: "Срочный", EN: "Urgent"},
}

// StatusLabel falls back to the raw key for unknown statuses.
func StatusLabel(s Status, lang Lang) string {
	if l, ok := statusLabels[s]; ok {
		return l.In(lang)
	}
	return string(s)
}

func RoleLabel(r Role, lang Lang) string {
	if l, ok := roleLabels[r]; ok {
		return l.In(lang)
	}
	return string(r)
}

func ActionLabel(a Action, lang Lang) string {
	if l, ok := actionLabels[a]; ok {
		return l.In(lang)
	}
	return string(a)
}

func PriorityLabel(p Priority, lang Lang) string {
	if l, ok := priorityLabels[p]; ok {
		return l.In(lang)
	}
	return string(p)
}

// DepartmentLabel shares the label of the role that staffs the department.
func DepartmentLabel(d Department, lang Lang) string {
	return RoleLabel(d.Role(), lang)
}

// ParseLang accepts "ru" and "en"; anything else selects Russian.
func ParseLang(s string) Lang {
	if Lang(s) == LangEN {
		return LangEN
	}
	return LangRU
}
