package database

import (
	"context"
	"errors"
	"fmt"

	"kasir/internal/models"
)

// Demo account created by Seed.
const (
	DemoEmail    = "demo@kasir.local"
	DemoPassword = "kasir123"
)

var demoProducts = []models.Product{
	{RegistrationCode: "BPOM MD 224413001", Name: "Beras Pandan Wangi 5kg", Description: "Beras putih pulen", Price: 7800000, Quantity: 25},
	{RegistrationCode: "BPOM MD 250913002", Name: "Minyak Goreng 2L", Description: "Minyak sawit kemasan pouch", Price: 3650000, Quantity: 40},
	{RegistrationCode: "BPOM MD 867013003", Name: "Gula Pasir 1kg", Description: "Gula kristal putih", Price: 1750000, Quantity: 60},
	{RegistrationCode: "BPOM MD 231504004", Name: "Teh Celup isi 25", Description: "Teh hitam celup", Price: 650000, Quantity: 80},
	{RegistrationCode: "BPOM MD 505616005", Name: "Kopi Bubuk 165g", Description: "Kopi robusta giling", Price: 1425000, Quantity: 30},
	{RegistrationCode: "BPOM MD 663011006", Name: "Mie Instan Goreng", Description: "Mie instan rasa original", Price: 310000, Quantity: 200},
	{RegistrationCode: "BPOM MD 219014007", Name: "Susu Kental Manis 370g", Description: "Susu kental manis kaleng", Price: 1200000, Quantity: 0},
}

// Seed creates the demo user with a store and a few products. It does
// nothing when the demo user already exists.
func (s *SQLDatabase) Seed(ctx context.Context) error {
	_, err := s.GetUserByEmail(ctx, DemoEmail)
	if err == nil {
		s.log.Debug().Msg("demo data already present")
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	user := &models.User{Name: "Demo Kasir", Email: DemoEmail}
	if err := s.CreateUser(ctx, user, DemoPassword); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	store := &models.Store{UserID: user.ID, Name: "Toko Sembako Demo", Address: "Jl. Merdeka No. 1, Bandung", Contact: "0812-0000-0000"}
	if err := s.CreateStore(ctx, store); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	for _, p := range demoProducts {
		p.StoreID = store.ID
		if err := s.CreateProduct(ctx, &p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Name, err)
		}
	}

	s.log.Info().Str("email", DemoEmail).Int("products", len(demoProducts)).Msg("demo data seeded")
	return nil
}
