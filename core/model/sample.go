package model

import "time"

// TimeSample is one row of the regularized weather and load series.
type TimeSample struct {
	Time      time.Time
	AirTemp   float64 // °C
	GHI       float64 // global horizontal irradiance, W/m²
	Clearness float64 // surface / top-of-atmosphere radiation
	WindSpeed float64 // m/s
	LoadW     float64
}

// Tariff holds flat import and export prices per kWh.
type Tariff struct {
	ImportPrice float64 `json:"import_price"`
	ExportPrice float64 `json:"export_price"`
}
