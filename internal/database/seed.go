package database

import (
	"fmt"

	"comanda/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// Seed ensures reference data exists: the admin account (when admin is
// non-nil), the dining room tables and the menu. Existing rows are left alone.
func Seed(db *gorm.DB, admin *models.User) error {
	if admin != nil {
		if err := seedAdmin(db, admin); err != nil {
			return err
		}
	}
	if err := seedTables(db); err != nil {
		return err
	}
	return seedMenu(db)
}

func seedAdmin(db *gorm.DB, admin *models.User) error {
	if admin.Email == nil {
		return fmt.Errorf("admin account needs an email")
	}
	var count int
	if err := db.Model(&models.User{}).Where("email = ?", *admin.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	admin.Role = models.RoleAdmin
	admin.Status = models.UserActive
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func seedTables(db *gorm.DB) error {
	var count int
	if err := db.Model(&models.Table{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count tables: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i := 1; i <= 15; i++ {
		table := models.Table{
			Number:   fmt.Sprintf("%02d", i),
			Capacity: tableCapacity(i),
			Location: "Planta Baja",
			Status:   models.TableAvailable,
		}
		if i > 8 {
			table.Location = "Planta Alta"
		}
		if err := db.Create(&table).Error; err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.Number, err)
		}
	}
	return nil
}

func tableCapacity(n int) int {
	switch {
	case n <= 8:
		return 4
	case n <= 12:
		return 6
	default:
		return 8
	}
}

type seedItem struct {
	name        string
	price       int64
	description string
}

type seedCategory struct {
	name        string
	description string
	items       []seedItem
}

var defaultMenu = []seedCategory{
	{
		name:        "Principales",
		description: "Platos principales del restaurante",
		items: []seedItem{
			{"Mole", 120, "Mole poblano con pollo o de puerco y arroz"},
			{"Enmoladas de Pollo o Puerco", 120, "Enmoladas rellenas con salsa de mole"},
			{"Torta Barda", 70, "Torta de chorizo con queso blanco y aguacate"},
			{"Consomé de Res", 120, "Sopa tradicional con carne de res"},
			{"Consomé de Borrego", 130, "Sopa de borrego con especias"},
			{"Menudo", 120, "Sopa de panza de res con especias"},
			{"Tacos de Carnitas", 30, "Tacos de carnitas con cebolla y cilantro"},
			{"Tacos de Borrego", 35, "Tacos de borrego con cebolla y cilantro"},
		},
	},
	{
		name:        "Antojitos",
		description: "Antojitos mexicanos tradicionales",
		items: []seedItem{
			{"Quesadillas", 50, "Tortillas de maíz rellenas de queso"},
			{"1 Kilo de Carnitas Surtido", 330, "Kilo de carnitas con tortillas y salsas"},
			{"1/2 Kilo de Carnitas Surtido", 190, "Medio kilo de carnitas con tortillas y salsas"},
			{"1/4 Kilo de Carnitas Surtido", 100, "Cuarto de kilo de carnitas con tortillas y salsas"},
			{"Tortas Individuales de Carnitas", 50, "Torta de carnitas con salsas y guarniciones"},
			{"1 Kilo de Carnitas de Maciza", 360, "Kilo de maciza con tortillas y salsas"},
			{"1/2 Kilo de Carnitas de Maciza", 220, "Medio kilo de maciza con tortillas y salsas"},
		},
	},
	{
		name:        "Bebidas",
		description: "Bebidas frías y calientes",
		items: []seedItem{
			{"Refresco", 35, "Bebida gaseosa de 355ml"},
			{"Agua Natural 1L", 30, "Agua purificada de 1L"},
			{"Agua Natural 500ml", 15, "Agua purificada de 500ml"},
		},
	},
	{
		name:        "Aguas Frescas",
		description: "Aguas frescas naturales",
		items: []seedItem{
			{"Agua de Sabor 1L", 45, "Agua de jamaica fría 1 litro"},
			{"Agua de Sabor 1/2L", 25, "Agua de jamaica fría 1/2 litro"},
		},
	},
}

func seedMenu(db *gorm.DB) error {
	var count int
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	return WithTransaction(db, func(tx *gorm.DB) error {
		for _, sc := range defaultMenu {
			category := models.Category{Name: sc.name, Description: sc.description, IsActive: true}
			if err := tx.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", sc.name, err)
			}
			for _, si := range sc.items {
				item := models.MenuItem{
					Name:        si.name,
					Description: si.description,
					Price:       decimal.NewFromInt(si.price),
					CategoryID:  category.ID,
					IsAvailable: true,
				}
				if err := tx.Create(&item).Error; err != nil {
					return fmt.Errorf("failed to create menu item %s: %w", si.name, err)
				}
			}
		}
		return nil
	})
}
