package models

// Profile - сохранённые настройки пользователя: город и ежедневная рассылка.
// Координаты и часовой пояс задаются только вместе через SetLocation.
type Profile struct {
	CityLabel string   `json:"city_label,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	TZ        string   `json:"tz,omitempty"`
	Daily     *Daily   `json:"daily,omitempty"`
}

// Daily - время ежедневной рассылки в формате HH:MM по местному времени.
type Daily struct {
	Time string `json:"time"`
}

// HasLocation сообщает, выбран ли город.
func (p Profile) HasLocation() bool {
	return p.Lat != nil && p.Lon != nil && p.TZ != ""
}

// SetLocation записывает город целиком.
func (p *Profile) SetLocation(label string, lat, lon float64, tz string) {
	p.CityLabel = label
	p.Lat = &lat
	p.Lon = &lon
	p.TZ = tz
}

// Location возвращает координаты и часовой пояс. Без города - нули.
func (p Profile) Location() (lat, lon float64, tz string) {
	if !p.HasLocation() {
		return 0, 0, ""
	}
	return *p.Lat, *p.Lon, p.TZ
}

// Clone возвращает глубокую копию профиля.
func (p Profile) Clone() Profile {
	out := Profile{CityLabel: p.CityLabel, TZ: p.TZ}
	if p.Lat != nil {
		lat := *p.Lat
		out.Lat = &lat
	}
	if p.Lon != nil {
		lon := *p.Lon
		out.Lon = &lon
	}
	if p.Daily != nil {
		d := *p.Daily
		out.Daily = &d
	}
	return out
}
