package model

// User is a dashboard member: author, person in charge (PIC) or editor.
type User struct {
	BaseModel
	FullName string   `gorm:"type:varchar(255);column:nama_lengkap;not null" json:"nama_lengkap"`
	Email    string   `gorm:"type:varchar(255);column:email;not null;uniqueIndex" json:"email"`
	Roles    []string `gorm:"type:text;column:peran;serializer:json" json:"peran"`
}

func (u *User) TableName() string {
	return "pengguna"
}

// Publisher is an imprint a manuscript can be targeted at and a book is assigned to.
type Publisher struct {
	BaseModel
	Name string `gorm:"type:varchar(255);column:nama_penerbit;not null" json:"nama_penerbit"`
}

func (p *Publisher) TableName() string {
	return "penerbit"
}
