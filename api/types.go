package api

// ContactData is the editable contact part of a user record.
type ContactData struct {
	Name     string `json:"name"`
	Postcode string `json:"postcode"`
	City     string `json:"city"`
	Phone    string `json:"phone"`
}

// User is the public user record returned by the service.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	ContactData
}

// Registration is the payload of POST /register. Only these fields are sent.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ContactData
}

// ContactDataPatch carries a partial contact update; nil fields are left untouched.
type ContactDataPatch struct {
	Name     *string `json:"name,omitempty"`
	Postcode *string `json:"postcode,omitempty"`
	City     *string `json:"city,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ContactDataPatch) Empty() bool {
	return p.Name == nil && p.Postcode == nil && p.City == nil && p.Phone == nil
}

// Apply returns c with the patch applied.
func (p ContactDataPatch) Apply(c ContactData) ContactData {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Postcode != nil {
		c.Postcode = *p.Postcode
	}
	if p.City != nil {
		c.City = *p.City
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type lengthResponse struct {
	Length int `json:"length"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword"`
}

type codeRequest struct {
	Code int `json:"code"`
}
