package domain

// Roles reconocidos en el token.
const (
	RoleAdmin = "admin" // lee todas las sucursales
	RoleUser  = "user"
)

// Scope alcance explícito de una petición (quién y sobre qué sucursal opera).
// Los casos de uso lo reciben como parámetro; no hay estado de autenticación compartido.
type Scope struct {
	UserID   string
	BranchID string
	Role     string
}

// IsAdmin indica si el alcance pertenece a un administrador.
func (s Scope) IsAdmin() bool { return s.Role == RoleAdmin }

// BranchFilter devuelve la sucursal para consultas de lectura.
// Un admin ve todas ("") salvo que pida una concreta; el resto queda fijado a su sucursal.
func (s Scope) BranchFilter(requested string) string {
	if s.IsAdmin() {
		return requested
	}
	return s.BranchID
}

// WriteBranch devuelve la sucursal sobre la que se registra una venta.
func (s Scope) WriteBranch(requested string) (string, error) {
	if s.BranchID != "" && !s.IsAdmin() {
		return s.BranchID, nil
	}
	if s.IsAdmin() {
		if requested != "" {
			return requested, nil
		}
		if s.BranchID != "" {
			return s.BranchID, nil
		}
	}
	return "", ErrBranchRequired
}

// CanAccess indica si el alcance puede ver recursos de la sucursal dada.
func (s Scope) CanAccess(branchID string) bool {
	return s.IsAdmin() || s.BranchID == branchID
}
