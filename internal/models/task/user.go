package task

type Role string

const RoleEmployee Role = "employee"
const RoleManager Role = "manager"
const RoleAdmin Role = "admin"

// User действующий пользователь, приходит из внешнего слоя аутентификации
type User struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}
