package models

type Client struct {
	Syncable
	FullName string
	Phone    string
	Email    string
	Location string
}

type ClientPatch struct {
	FullName *string
	Phone    *string
	Email    *string
	Location *string
}

func (p ClientPatch) IsEmpty() bool {
	return p.FullName == nil && p.Phone == nil && p.Email == nil && p.Location == nil
}
