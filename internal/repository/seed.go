package repository

import "github.com/enginow/enginow-api/internal/models"

// DefaultPrograms is the static training catalog. The Postgres backend
// upserts it on boot and the memory backend is constructed from it.
func DefaultPrograms() []models.Program {
	return []models.Program{
		{
			ID:            "fullstack-web",
			Title:         "Full Stack Web Development",
			Category:      "development",
			Duration:      "6 months",
			Price:         24999,
			OriginalPrice: 34999,
			Features:      models.StringList{"Live mentor sessions", "12 portfolio projects", "Placement assistance", "Certificate of completion"},
			Highlights:    models.StringList{"MERN stack", "REST & GraphQL APIs", "Deployment on cloud"},
			IsActive:      true,
		},
		{
			ID:            "embedded-systems",
			Title:         "Embedded Systems & IoT",
			Category:      "electronics",
			Duration:      "4 months",
			Price:         19999,
			OriginalPrice: 27999,
			Features:      models.StringList{"Hardware kit included", "8 guided builds", "Industry mentor reviews"},
			Highlights:    models.StringList{"ARM Cortex-M", "RTOS fundamentals", "Sensor networks"},
			IsActive:      true,
		},
		{
			ID:            "data-science",
			Title:         "Data Science & Machine Learning",
			Category:      "data",
			Duration:      "6 months",
			Price:         27999,
			OriginalPrice: 39999,
			Features:      models.StringList{"Kaggle-style capstones", "Weekly doubt clearing", "Interview preparation"},
			Highlights:    models.StringList{"Python & pandas", "Model deployment", "MLOps basics"},
			IsActive:      true,
		},
		{
			ID:            "core-mechanical",
			Title:         "Mechanical Design with CAD",
			Category:      "mechanical",
			Duration:      "3 months",
			Price:         14999,
			OriginalPrice: 21999,
			Features:      models.StringList{"Software licenses included", "6 design challenges"},
			Highlights:    models.StringList{"SolidWorks", "GD&T", "FEA introduction"},
			IsActive:      true,
		},
		{
			ID:            "gate-prep",
			Title:         "GATE Preparation Bootcamp",
			Category:      "competitive",
			Duration:      "8 months",
			Price:         17999,
			OriginalPrice: 25999,
			Features:      models.StringList{"Daily practice sets", "Mock test series", "Previous year analysis"},
			Highlights:    models.StringList{"CS/EC/ME streams", "Rank-holder mentors"},
			IsActive:      true,
		},
		{
			ID:            "vlsi-design",
			Title:         "VLSI Design Fundamentals",
			Category:      "electronics",
			Duration:      "5 months",
			Price:         22999,
			OriginalPrice: 29999,
			Features:      models.StringList{"EDA tool access", "Tape-out style project"},
			Highlights:    models.StringList{"Verilog & SystemVerilog", "Physical design flow"},
			IsActive:      false,
		},
	}
}
