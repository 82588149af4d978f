// Package sheets reads and writes the .xlsx workbooks used to bulk-load
// shops, research centers and products and to export map views.
package sheets

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/pkg/geospatial"
)

// Sheet names recognised by ReadWorkbook.
const (
	ShopsSheet           = "Shops"
	ResearchCentersSheet = "ResearchCenters"
	ProductsSheet        = "Products"
	EntitiesSheet        = "MapEntities"
)

// Shops columns: Name, Type, Address, City, Latitude, Longitude, Phone,
// WhatsApp, Email, Rating, Opening, Closing.
const (
	shopName = iota
	shopType
	shopAddress
	shopCity
	shopLat
	shopLon
	shopPhone
	shopWhatsApp
	shopEmail
	shopRating
	shopOpening
	shopClosing
)

// ResearchCenters columns: Name, Description, Address, City, State, Latitude,
// Longitude, Email, Phone, WhatsApp, Website, Expertise (";"-separated).
const (
	centerName = iota
	centerDescription
	centerAddress
	centerCity
	centerState
	centerLat
	centerLon
	centerEmail
	centerPhone
	centerWhatsApp
	centerWebsite
	centerExpertise
)

// Products columns: Name, Type (pesticide|fertilizer), Description, Price, Unit, Stock.
const (
	productName = iota
	productType
	productDescription
	productPrice
	productUnit
	productStock
)

// Workbook is the parsed content of an import file.
type Workbook struct {
	Shops    []domain.Shop
	Centers  []domain.ResearchCenter
	Products []domain.Product
	// Skipped counts data rows dropped for missing names, bad coordinates
	// or unparsable product fields.
	Skipped int
}

// ReadWorkbook parses the Shops, ResearchCenters and Products sheets. The first row of
// each sheet is a header. A missing sheet yields no rows.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}

	shopRows, err := sheetRows(f, ShopsSheet)
	if err != nil {
		return nil, err
	}
	for _, row := range shopRows {
		shop, ok := parseShop(row)
		if !ok {
			wb.Skipped++
			continue
		}
		wb.Shops = append(wb.Shops, shop)
	}

	centerRows, err := sheetRows(f, ResearchCentersSheet)
	if err != nil {
		return nil, err
	}
	for _, row := range centerRows {
		c, ok := parseCenter(row)
		if !ok {
			wb.Skipped++
			continue
		}
		wb.Centers = append(wb.Centers, c)
	}

	productRows, err := sheetRows(f, ProductsSheet)
	if err != nil {
		return nil, err
	}
	for _, row := range productRows {
		p, ok := parseProduct(row)
		if !ok {
			wb.Skipped++
			continue
		}
		wb.Products = append(wb.Products, p)
	}

	return wb, nil
}

// WriteEntities writes ranked map entities as a single-sheet workbook.
func WriteEntities(w io.Writer, entities []domain.RankedEntity) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(EntitiesSheet)
	if err != nil {
		return err
	}

	// Use Stream Writer for performance
	sw, err := f.NewStreamWriter(EntitiesSheet)
	if err != nil {
		return err
	}

	headers := []interface{}{"Name", "Category", "Latitude", "Longitude", "Distance (km)"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, e := range entities {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{e.Name, e.Category, e.Location.Latitude, e.Location.Longitude, e.DistanceKm}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	_, err = f.WriteTo(w)
	return err
}

// sheetRows returns the data rows of sheet, header excluded.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func parseShop(row []string) (domain.Shop, bool) {
	name := cell(row, shopName)
	loc, ok := parsePoint(cell(row, shopLat), cell(row, shopLon))
	if name == "" || !ok {
		return domain.Shop{}, false
	}

	kind := strings.ToLower(cell(row, shopType))
	switch kind {
	case "":
		kind = domain.ShopTypePesticides
	case domain.ShopTypePesticides, domain.ShopTypeFertilizers, domain.ShopTypeBoth:
	default:
		return domain.Shop{}, false
	}

	rating, _ := parseNumber(cell(row, shopRating))

	return domain.Shop{
		Name:        name,
		ShopType:    kind,
		Address:     cell(row, shopAddress),
		City:        cell(row, shopCity),
		Location:    loc,
		Phone:       cell(row, shopPhone),
		WhatsApp:    cell(row, shopWhatsApp),
		Email:       cell(row, shopEmail),
		Rating:      rating,
		OpeningTime: cell(row, shopOpening),
		ClosingTime: cell(row, shopClosing),
	}, true
}

func parseCenter(row []string) (domain.ResearchCenter, bool) {
	name := cell(row, centerName)
	loc, ok := parsePoint(cell(row, centerLat), cell(row, centerLon))
	if name == "" || !ok {
		return domain.ResearchCenter{}, false
	}

	var expertise []string
	for _, e := range strings.Split(cell(row, centerExpertise), ";") {
		if e = strings.TrimSpace(e); e != "" {
			expertise = append(expertise, e)
		}
	}

	return domain.ResearchCenter{
		Name:        name,
		Description: cell(row, centerDescription),
		Address:     cell(row, centerAddress),
		City:        cell(row, centerCity),
		State:       cell(row, centerState),
		Location:    loc,
		Email:       cell(row, centerEmail),
		Phone:       cell(row, centerPhone),
		WhatsApp:    cell(row, centerWhatsApp),
		Website:     cell(row, centerWebsite),
		Expertise:   expertise,
	}, true
}

func parseProduct(row []string) (domain.Product, bool) {
	name := cell(row, productName)
	if name == "" {
		return domain.Product{}, false
	}

	kind := strings.TrimSuffix(strings.ToLower(cell(row, productType)), "s")
	if kind != domain.ProductTypePesticide && kind != domain.ProductTypeFertilizer {
		return domain.Product{}, false
	}

	price, err := parseNumber(cell(row, productPrice))
	if err != nil || price < 0 {
		return domain.Product{}, false
	}

	stock := 0
	if raw := cell(row, productStock); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.Product{}, false
		}
		stock = n
	}

	unit := cell(row, productUnit)
	if unit == "" {
		unit = "kg"
	}

	return domain.Product{
		Name:        name,
		Type:        kind,
		Description: cell(row, productDescription),
		Price:       price,
		Unit:        unit,
		Stock:       stock,
	}, true
}

func parsePoint(lat, lon string) (domain.GeoPoint, bool) {
	la, err1 := parseNumber(lat)
	lo, err2 := parseNumber(lon)
	if err1 != nil || err2 != nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Latitude: la, Longitude: lo}
	return p, geospatial.ValidatePoint(p) == nil
}

// parseNumber accepts both "17.385" and "17,385".
func parseNumber(val string) (float64, error) {
	val = strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
	if val == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(val, 64)
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
