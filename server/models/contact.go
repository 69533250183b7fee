package models

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const srid = 4326

type GeomPoint geom.Point

func NewGeomPoint(lat, lng float64) (*GeomPoint, error) {
	p, err := geom.NewPoint(geom.XY).SetSRID(srid).SetCoords(geom.Coord{lng, lat})
	if err != nil {
		return nil, err
	}
	g := GeomPoint(*p)
	return &g, nil
}

func (g GeomPoint) LatLng() (float64, float64) {
	p := geom.Point(g)
	return p.Y(), p.X()
}

// Value implements driver.Valuer, encoding the point as EWKB.
func (g GeomPoint) Value() (driver.Value, error) {
	p := geom.Point(g)
	ewkbPt := ewkb.Point{Point: p.SetSRID(srid)}
	return ewkbPt.Value()
}

// Scan implements sql.Scanner for hex encoded EWKB points.
func (g *GeomPoint) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unexpected geometry type %T", value)
	}
	t, err := hex.DecodeString(raw)
	if err != nil {
		return err
	}
	gt, err := ewkb.Unmarshal(t)
	if err != nil {
		return err
	}
	p, ok := gt.(*geom.Point)
	if !ok {
		return fmt.Errorf("unexpected geometry %T", gt)
	}
	*g = GeomPoint(*p)
	return nil
}

// Contact is the strongest sighting of a scan batch, pinned to where the
// scanning agent was.
type Contact struct {
	SeenAt   time.Time `gorm:"primaryKey;index:idx_seen_at"`
	RPI      string    `gorm:"primaryKey;index:idx_rpi"`
	AEM      string
	RSSI     int
	AgentID  string     `gorm:"index:idx_agent_id"`
	Geometry *GeomPoint `gorm:"type:geometry(POINT,4326);index:idx_geometry"`
}

type ContactResult struct {
	SeenAt  time.Time `json:"seenAt"`
	RPI     string    `json:"rpi"`
	AEM     string    `json:"aem"`
	RSSI    int       `json:"rssi"`
	AgentID string    `json:"agentId"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
}

func (c Contact) Result() ContactResult {
	res := ContactResult{
		SeenAt:  c.SeenAt,
		RPI:     c.RPI,
		AEM:     c.AEM,
		RSSI:    c.RSSI,
		AgentID: c.AgentID,
	}
	if c.Geometry != nil {
		res.Lat, res.Lng = c.Geometry.LatLng()
	}
	return res
}
