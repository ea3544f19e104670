package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// HeaderRowNone requests positional column names instead of a header row.
const HeaderRowNone = -1

type XlsxService struct{}

func NewXlsxService() (*XlsxService, error) {
	return &XlsxService{}, nil
}

// Parse decodes spreadsheet bytes into a table. A structured decode is
// attempted first; if the container is malformed the raw worksheet XML is
// scraped out of the archive instead. When neither path yields rows the
// result is an empty table, not an error — the caller treats it as a skip.
func (s *XlsxService) Parse(ctx context.Context, data []byte, headerRow int) (Table, error) {
	if s == nil {
		return Table{}, errors.New("xlsx service is nil")
	}
	_ = ctx

	if len(data) == 0 {
		return Table{}, nil
	}

	grid, err := readWorkbookGrid(data)
	if err != nil {
		grid, err = scrapeWorksheetGrid(data)
		if err != nil {
			return Table{}, nil
		}
	}

	return gridToTable(grid, headerRow), nil
}

func readWorkbookGrid(data []byte) ([][]string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		if closeErr := workbook.Close(); closeErr != nil {
			return nil, fmt.Errorf("close workbook: %w", closeErr)
		}
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		if closeErr := workbook.Close(); closeErr != nil {
			return nil, fmt.Errorf("close workbook: %w", closeErr)
		}
		return nil, fmt.Errorf("get rows for %s: %w", sheets[0], err)
	}

	if closeErr := workbook.Close(); closeErr != nil {
		return nil, fmt.Errorf("close workbook: %w", closeErr)
	}

	return rows, nil
}

type worksheetXML struct {
	SheetData struct {
		Rows []struct {
			Cells []struct {
				Value *string `xml:"v"`
			} `xml:"c"`
		} `xml:"row"`
	} `xml:"sheetData"`
}

// scrapeWorksheetGrid treats the input as a zip archive and pulls cell
// values straight out of the first worksheet XML member. A cell without a
// value node becomes an empty string.
func scrapeWorksheetGrid(data []byte) ([][]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var member *zip.File
	for _, file := range archive.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/") && strings.HasSuffix(file.Name, ".xml") {
			member = file
			break
		}
	}
	if member == nil {
		return nil, errors.New("no worksheet member in archive")
	}

	reader, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open worksheet member: %w", err)
	}

	content, readErr := io.ReadAll(reader)
	closeErr := reader.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read worksheet member: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close worksheet member: %w", closeErr)
	}

	var worksheet worksheetXML
	if err := xml.Unmarshal(content, &worksheet); err != nil {
		return nil, fmt.Errorf("parse worksheet xml: %w", err)
	}

	grid := make([][]string, 0, len(worksheet.SheetData.Rows))
	for _, row := range worksheet.SheetData.Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			if cell.Value == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, *cell.Value)
		}
		grid = append(grid, cells)
	}

	if len(grid) == 0 {
		return nil, errors.New("worksheet has no rows")
	}

	return grid, nil
}

func gridToTable(grid [][]string, headerRow int) Table {
	if len(grid) == 0 {
		return Table{}
	}

	if headerRow >= 0 && len(grid) > headerRow {
		return NewTable(grid[headerRow], grid[headerRow+1:])
	}

	return NewPositionalTable(grid)
}
