package translator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator(t *testing.T) *LocationTranslator {
	t.Helper()
	tr, err := New()
	require.NoError(t, err)
	return tr
}

func TestTranslateProvince(t *testing.T) {
	tr := newTranslator(t)

	tests := []struct {
		in, want string
	}{
		{"江苏省", "Jiangsu"},
		{"江苏", "Jiangsu"},
		{"内蒙古", "Inner Mongolia"},
		{"广西", "Guangxi"},
		{"北京", "Beijing"},
		{" 浙江省 ", "Zhejiang"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tr.TranslateProvince(tt.in), tt.in)
	}
}

func TestTranslateCity(t *testing.T) {
	tr := newTranslator(t)

	assert.Equal(t, "Nanjing", tr.TranslateCity("南京市"))
	assert.Equal(t, "Nanjing", tr.TranslateCity("南京"))
	assert.Equal(t, "Dali", tr.TranslateCity("大理"))
	assert.Equal(t, "Kokdala", tr.TranslateCity("可克达拉市"))
}

func TestUnknownNamesReturnedUnchanged(t *testing.T) {
	tr := newTranslator(t)

	assert.Equal(t, "火星市", tr.TranslateCity("火星市"))
	assert.Equal(t, "火星省", tr.TranslateProvince("火星省"))

	// A single character never fuzzy-matches
	assert.Equal(t, "市", tr.TranslateCity("市"))
}

func TestTranslationIsIdempotent(t *testing.T) {
	tr := newTranslator(t)

	for _, zh := range []string{"江苏省", "广东省", "新疆维吾尔自治区"} {
		en := tr.TranslateProvince(zh)
		assert.NotEqual(t, zh, en)
		assert.Equal(t, en, tr.TranslateProvince(en))
	}
	for _, zh := range []string{"南京市", "西安市", "乌鲁木齐"} {
		en := tr.TranslateCity(zh)
		assert.Equal(t, en, tr.TranslateCity(en))
	}
}

func TestFuzzyMatchIsDeterministic(t *testing.T) {
	tr := newTranslator(t)

	// "吉林" is contained in 吉林市 only among city keys; repeated calls agree
	first := tr.TranslateCity("吉林")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, tr.TranslateCity("吉林"))
	}
	assert.Equal(t, "Jilin", first)
}

func TestProvinceOfCity(t *testing.T) {
	tr := newTranslator(t)

	assert.Equal(t, "江苏省", tr.ProvinceOfCity("南京市"))
	assert.Equal(t, "江苏省", tr.ProvinceOfCity("南京"))
	assert.Equal(t, "上海市", tr.ProvinceOfCity("上海"))
	assert.Equal(t, "", tr.ProvinceOfCity("火星"))
	assert.Equal(t, "", tr.ProvinceOfCity(""))
}

func TestNewFromDirOverridesTables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cities.json"), []byte(`{"南京市":"Nanking"}`), 0o644))

	tr, err := NewFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "Nanking", tr.TranslateCity("南京"))
	// Provinces come from the embedded copy
	assert.Equal(t, "Jiangsu", tr.TranslateProvince("江苏"))
}

func TestNewFromDirRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "provinces.json"), []byte(`{`), 0o644))

	_, err := NewFromDir(dir)
	assert.ErrorContains(t, err, "parse provinces.json")
}

func TestPrefectureCoverage(t *testing.T) {
	tr := newTranslator(t)

	tests := []struct {
		city, province, en string
	}{
		{"临沂市", "山东省", "Linyi"},
		{"襄阳市", "湖北省", "Xiangyang"},
		{"泰州市", "江苏省", "Taizhou"},
		{"湛江市", "广东省", "Zhanjiang"},
		{"南阳市", "河南省", "Nanyang"},
		{"邢台市", "河北省", "Xingtai"},
		{"延边朝鲜族自治州", "吉林省", "Yanbian"},
		{"锡林郭勒盟", "内蒙古自治区", "Xilingol"},
		{"仙桃", "湖北省", "Xiantao"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.province, tr.ProvinceOfCity(tt.city), tt.city)
		assert.Equal(t, tt.en, tr.TranslateCity(tt.city), tt.city)
	}

	// Every city maps to a province the province table knows
	assert.GreaterOrEqual(t, len(tr.cities.keys), 330)
	for _, zh := range tr.cities.keys {
		province := tr.ProvinceOfCity(zh)
		require.NotEmpty(t, province, zh)
		assert.NotEqual(t, province, tr.TranslateProvince(province), zh)
	}
}
