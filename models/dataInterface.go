package models

// Identifier is implemented by rows served through the request dataloaders.
type Identifier interface {
	GetId() int
}

func (e Expense) GetId() int {
	return e.ID
}

func (r Rental) GetId() int {
	return r.ID
}

func (w FinishingWork) GetId() int {
	return w.ID
}
