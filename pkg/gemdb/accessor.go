package gemdb

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	gemana "github.com/cms-gem-daq-project/gemana/pkg"
	"github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	"github.com/spf13/cast"
	_ "modernc.org/sqlite"
)

// Connect opens the database described by cfg. For sqlite, DBName is a
// file holding the views; it is attached under Schema.
func Connect(cfg gemana.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "mysql":
		c := mysql.NewConfig()
		c.User = cfg.User
		c.Passwd = cfg.Passwd
		c.Net = "tcp"
		c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		c.DBName = cfg.DBName
		c.ParseTime = true
		return sqlx.Connect("mysql", c.FormatDSN())
	case "sqlite":
		db, err := sqlx.Connect("sqlite", ":memory:")
		if err != nil {
			return nil, err
		}
		// ATTACH is per connection
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("ATTACH DATABASE ? AS "+Schema, cfg.DBName); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not attach %s: %w", cfg.DBName, err)
		}
		return db, nil
	}
	return nil, &gemana.ErrUsage{Option: "driver", Value: cfg.Driver, Reason: "supported drivers are mysql and sqlite"}
}

type Accessor struct {
	DB    *sqlx.DB
	Debug bool
}

// ForEnvironment connects to the production or development target of
// config.
func ForEnvironment(config gemana.Configuration, fromProd bool) (*Accessor, error) {
	target := config.Target(fromProd)
	db, err := Connect(target)
	if err != nil {
		return nil, fmt.Errorf("error connecting to %s database %s: %w", target.Driver, target.DBName, err)
	}
	return &Accessor{DB: db, Debug: config.Verbosity > 1}, nil
}

func (a *Accessor) Close() error {
	return a.DB.Close()
}

// Row is one record of a view. VFATN is the position of the chip in the
// requested list, or -1 when no list was given.
type Row struct {
	VFATN  int
	Values map[string]interface{}
}

func (r Row) String(column string) string {
	return cast.ToString(r.Values[column])
}

type Table struct {
	View    string
	Columns []string
	Rows    []Row
	// Missing lists the requested serial numbers absent from the view.
	Missing []string
}

func normalize(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// GetView reads view, restricted to chipIDs when given. chipIDs is ordered
// by VFAT position and rows are joined to it on vfat3_ser_num.
func (a *Accessor) GetView(ctx context.Context, view string, chipIDs []uint32) (*Table, error) {
	query, args, err := BuildViewQuery(view, chipIDs)
	if err != nil {
		return nil, err
	}
	query = a.DB.Rebind(query)

	rows, err := a.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying view %s: %w", view, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	table := &Table{View: view}
	for _, c := range columns {
		table.Columns = append(table.Columns, strings.ToLower(c))
	}

	for rows.Next() {
		values := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(values); err != nil {
			return nil, fmt.Errorf("error scanning view %s: %w", view, err)
		}
		row := Row{VFATN: -1, Values: make(map[string]interface{}, len(values))}
		for k, v := range values {
			row.Values[strings.ToLower(k)] = normalize(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading view %s: %w", view, err)
	}

	if a.Debug {
		gemana.GetLogger().Info(fmt.Sprintf("Read %d rows from view %s, columns %v", len(table.Rows), view, table.Columns), "gemdb")
	}

	if len(chipIDs) > 0 {
		joinOnSerialNumber(table, chipIDs)
	}
	return table, nil
}

// joinOnSerialNumber sets the VFAT position of every row from the chip
// list and sorts the rows by it. A chip listed at several positions gets
// one row per position.
func joinOnSerialNumber(table *Table, chipIDs []uint32) {
	positions := make(map[string][]int, len(chipIDs))
	for vfat, id := range chipIDs {
		serial := SerialNumber(id)
		positions[serial] = append(positions[serial], vfat)
	}

	found := make(map[int]bool, len(chipIDs))
	joined := make([]Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		serial := strings.ToLower(row.String("vfat3_ser_num"))
		vfats, ok := positions[serial]
		if !ok {
			joined = append(joined, row)
			continue
		}
		for _, vfat := range vfats {
			values := make(map[string]interface{}, len(row.Values)+1)
			for k, v := range row.Values {
				values[k] = v
			}
			values["vfatn"] = vfat
			joined = append(joined, Row{VFATN: vfat, Values: values})
			found[vfat] = true
		}
	}
	table.Rows = joined
	sort.SliceStable(table.Rows, func(i, j int) bool {
		return table.Rows[i].VFATN < table.Rows[j].VFATN
	})
	table.Columns = append([]string{"vfatn"}, table.Columns...)

	for vfat, id := range chipIDs {
		if !found[vfat] {
			table.Missing = append(table.Missing, SerialNumber(id))
		}
	}
	if len(table.Rows) != len(chipIDs) || len(table.Missing) > 0 {
		gemana.GetLogger().Warn(fmt.Sprintf("view %s returned %d rows for %d vfats; not found: %v",
			table.View, len(table.Rows), len(chipIDs), table.Missing), "gemdb")
	}
}

func (a *Accessor) GetVFAT3ConfView(ctx context.Context, chipIDs []uint32) (*Table, error) {
	return a.GetView(ctx, ViewVFAT3ChipConf, chipIDs)
}

func (a *Accessor) GetVFAT3ProdSumView(ctx context.Context, chipIDs []uint32) (*Table, error) {
	return a.GetView(ctx, ViewVFAT3ProdSummary, chipIDs)
}
