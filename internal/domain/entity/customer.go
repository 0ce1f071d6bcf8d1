package entity

import "time"

// Customer cliente del directorio de una sucursal (solo lectura para el motor de ventas).
type Customer struct {
	ID        string
	BranchID  string
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
}
