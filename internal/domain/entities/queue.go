package entities

// QueueItem is one entry of a generated session queue: the item id plus the
// snapshot of scheduling metadata the generator ranked it by.
type QueueItem struct {
	ItemID      string
	ContentType ContentType
	Status      ScheduleStatus
	Priority    float64
	DaysOverdue float64
	IsNew       bool // no prior schedule record existed at generation time
}
