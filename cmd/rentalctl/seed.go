package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"

	"rentalhub/internal/modules/rental"
)

type sampleRental struct {
	Name        string
	Address     string
	RoomCount   int
	Price       float64
	Description string
}

var sampleRentals = []sampleRental{
	{"Riverside Loft", "14 Quay St", 2, 1450, "Open-plan loft overlooking the river."},
	{"Garden Cottage", "3 Orchard Ln", 3, 1200, "Detached cottage with a private garden."},
	{"City Studio", "220 Market Ave", 1, 780, "Compact studio five minutes from the station."},
	{"Hilltop House", "9 Summit Rd", 4, 2300, "Family house with views across the valley."},
	{"Harbour Flat", "41 Harbour Rd", 2, 1100, "Second-floor flat facing the marina."},
	{"Old Town Apartment", "7 Cathedral Sq", 3, 1650, "Renovated apartment in a listed building."},
	{"Park View Duplex", "18 Elm Park", 3, 1900, "Two-level duplex opposite the park."},
	{"Campus Room", "112 College Rd", 1, 520, "Furnished room near the university."},
}

// seedRentals creates count rentals through the service so each record
// gets a stored image like any API upload.
func seedRentals(ctx context.Context, svc *rental.Service, count int) (int, error) {
	for i := 0; i < count; i++ {
		s := sampleRentals[i%len(sampleRentals)]
		name := s.Name
		if i >= len(sampleRentals) {
			name = fmt.Sprintf("%s %d", s.Name, i/len(sampleRentals)+1)
		}
		rooms, price := s.RoomCount, s.Price

		img, err := placeholderPNG()
		if err != nil {
			return i, err
		}

		_, err = svc.Create(ctx, rental.CreateRentalRequest{
			Name:        name,
			Address:     s.Address,
			RoomCount:   &rooms,
			Price:       &price,
			Description: s.Description,
		}, &rental.ImageFile{
			Filename: "seed.png",
			Size:     int64(len(img)),
			Content:  bytes.NewReader(img),
		})
		if err != nil {
			return i, fmt.Errorf("seed %q: %w", name, err)
		}
	}
	return count, nil
}

// placeholderPNG renders a small solid-colour image.
func placeholderPNG() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	c := color.RGBA{R: uint8(rand.Intn(256)), G: uint8(rand.Intn(256)), B: uint8(rand.Intn(256)), A: 255}
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
