package crawler

// Field identifies a DealerRecord attribute
type Field int

const (
	FieldBrand Field = iota
	FieldProvince
	FieldProvinceEN
	FieldCity
	FieldCityEN
	FieldDistrict
	FieldStoreName
	FieldType
	FieldType2
	FieldAddress
	FieldPhone
	FieldRemarks
)

// Value reads the field from rec
func (f Field) Value(rec DealerRecord) string {
	switch f {
	case FieldBrand:
		return rec.Brand
	case FieldProvince:
		return rec.Province
	case FieldProvinceEN:
		return rec.ProvinceEN
	case FieldCity:
		return rec.City
	case FieldCityEN:
		return rec.CityEN
	case FieldDistrict:
		return rec.District
	case FieldStoreName:
		return rec.StoreName
	case FieldType:
		return rec.Type
	case FieldType2:
		return rec.Type2
	case FieldAddress:
		return rec.Address
	case FieldPhone:
		return rec.Phone
	case FieldRemarks:
		return rec.Remarks
	default:
		return ""
	}
}

// Column is one output column
type Column struct {
	Header string
	Field  Field
}

// Schema is the ordered column layout of a vendor's output
type Schema struct {
	Name    string
	Columns []Column
}

// Headers returns the header row
func (s Schema) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Row projects rec onto the schema. The result always has len(s.Columns)
// entries.
func (s Schema) Row(rec DealerRecord) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		row[i] = c.Field.Value(rec)
	}
	return row
}

// Has reports whether the schema carries f
func (s Schema) Has(f Field) bool {
	for _, c := range s.Columns {
		if c.Field == f {
			return true
		}
	}
	return false
}

// SchemaDealer is the layout of the car maker dealer lists
var SchemaDealer = Schema{
	Name: "dealer",
	Columns: []Column{
		{"省", FieldProvince},
		{"Province", FieldProvinceEN},
		{"市", FieldCity},
		{"City", FieldCityEN},
		{"区", FieldDistrict},
		{"店名", FieldStoreName},
		{"类型", FieldType},
		{"类型2", FieldType2},
		{"地址", FieldAddress},
		{"电话", FieldPhone},
		{"备注", FieldRemarks},
	},
}

// SchemaBrand leads with the brand column
var SchemaBrand = Schema{
	Name: "brand",
	Columns: []Column{
		{"品牌", FieldBrand},
		{"省", FieldProvince},
		{"Province", FieldProvinceEN},
		{"市区辅助", FieldCity},
		{"City/Area", FieldCityEN},
		{"区", FieldDistrict},
		{"店名", FieldStoreName},
		{"类型", FieldType},
		{"地址", FieldAddress},
		{"电话", FieldPhone},
		{"备注", FieldRemarks},
	},
}

// SchemaCity drops the brand column and the second type
var SchemaCity = Schema{
	Name: "city",
	Columns: []Column{
		{"省", FieldProvince},
		{"Province", FieldProvinceEN},
		{"市区辅助", FieldCity},
		{"City", FieldCityEN},
		{"区", FieldDistrict},
		{"店名", FieldStoreName},
		{"类型", FieldType},
		{"地址", FieldAddress},
		{"电话", FieldPhone},
		{"备注", FieldRemarks},
	},
}

// SchemaTire carries both tire dealer types
var SchemaTire = Schema{
	Name: "tire",
	Columns: []Column{
		{"品牌", FieldBrand},
		{"省", FieldProvince},
		{"Province", FieldProvinceEN},
		{"市", FieldCity},
		{"City", FieldCityEN},
		{"区", FieldDistrict},
		{"店名", FieldStoreName},
		{"类型1", FieldType},
		{"类型2", FieldType2},
		{"地址", FieldAddress},
		{"电话", FieldPhone},
		{"备注", FieldRemarks},
	},
}
