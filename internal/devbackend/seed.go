package devbackend

import goPortal "github.com/MrEthical07/goPortal"

// DefaultCatalog is the company catalog of a local run.
func DefaultCatalog() []goPortal.Company {
	return []goPortal.Company{
		{ID: "andes-foods", Name: "Andes Foods S.A."},
		{ID: "pacific-trade", Name: "Pacific Trade Cía. Ltda."},
		{ID: "sierra-retail", Name: "Sierra Retail"},
		{ID: "costa-logistics", Name: "Costa Logistics"},
	}
}

// DefaultUsers seeds one user per role. The passwords are for local use only.
func DefaultUsers() []SeedUser {
	return []SeedUser{
		{
			Identification: "1700000001",
			Name:           "Admin Portal",
			Email:          "admin@portal.local",
			Role:           "ADMIN",
			Password:       "Admin1234",
		},
		{
			Identification: "1700000002",
			Name:           "Coordinadora Ventas",
			Email:          "coordinador@portal.local",
			Role:           "COORDINATOR",
			Password:       "Coord1234",
		},
		{
			Identification: "1700000003",
			Name:           "Cliente Demo",
			Email:          "cliente@portal.local",
			Role:           "CLIENT",
			Password:       "Cliente1234",
			Companies:      map[string]string{"andes-foods": GrantApproved, "pacific-trade": GrantPending},
		},
	}
}
