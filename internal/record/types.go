package record

// MeVToGeV is the single unit conversion applied to energies and momenta.
const MeVToGeV = 0.001

// Sentinel values stand in for a hit that has no resolvable truth link, so
// that every truth column keeps exactly one entry per hit.
const (
	SentinelInt   int64   = -999
	SentinelFloat float32 = -999
)

// HitKind selects which calibrated hit collection an event is read from.
type HitKind int

const (
	// Prompt hits are the first-pass calibrated hits.
	Prompt HitKind = iota
	// Final hits are the merged, final calibration pass.
	Final
)

// String returns the short name used in table paths and output tags.
func (k HitKind) String() string {
	if k == Final {
		return "final"
	}
	return "prompt"
}

// Table returns the hit dataset path for this kind.
func (k HitKind) Table() string {
	return "charge/calib_" + k.String() + "_hits"
}

// BacktrackTable returns the hit backtrack dataset path for this kind.
func (k HitKind) BacktrackTable() string {
	return "mc_truth/calib_" + k.String() + "_hit_backtrack"
}

// Dataset paths shared by every hit kind.
const (
	EventsTable         = "charge/events"
	PacketsTable        = "charge/packets"
	SegmentsTable       = "mc_truth/segments"
	PacketFractionTable = "mc_truth/packet_fraction"
	TrajectoriesTable   = "mc_truth/trajectories"
	InteractionsTable   = "mc_truth/interactions"
)

// Event is one row of the charge event table.
type Event struct {
	ID      int64 `yaml:"id"`
	TsStart int64 `yaml:"ts_start"`
	TsEnd   int64 `yaml:"ts_end"`
	UnixTs  int64 `yaml:"unix_ts"`
}

// Hit is a calibrated charge deposition.
type Hit struct {
	ID    int64   `yaml:"id"`
	X     float32 `yaml:"x"`
	Y     float32 `yaml:"y"`
	Z     float32 `yaml:"z"`
	Q     float32 `yaml:"q"`
	E     float32 `yaml:"e"`
	TsPPS float32 `yaml:"ts_pps"`
}

// Segment is a simulated energy-deposition step of one trajectory.
type Segment struct {
	ID         int64 `yaml:"id"`
	SegmentID  int64 `yaml:"segment_id"`
	EventID    int64 `yaml:"event_id"`
	PDG        int32 `yaml:"pdg_id"`
	FileTrajID int64 `yaml:"file_traj_id"`
	TrajID     int64 `yaml:"traj_id"`
	VertexID   int64 `yaml:"vertex_id"`
}

// Trajectory is a simulated particle. EventID is the spill it belongs to.
type Trajectory struct {
	EventID    int64      `yaml:"event_id"`
	FileTrajID int64      `yaml:"file_traj_id"`
	TrajID     int64      `yaml:"traj_id"`
	PDG        int32      `yaml:"pdg_id"`
	VertexID   int64      `yaml:"vertex_id"`
	ParentID   int64      `yaml:"parent_id"`
	XYZStart   [3]float32 `yaml:"xyz_start,flow"`
	XYZEnd     [3]float32 `yaml:"xyz_end,flow"`
	PXYZStart  [3]float32 `yaml:"pxyz_start,flow"`
	EStart     float32    `yaml:"e_start"`
}

// Vertex is a simulated neutrino interaction. EventID is the spill it
// belongs to. The six channel flags are not mutually exclusive.
type Vertex struct {
	EventID  int64      `yaml:"event_id"`
	VertexID int64      `yaml:"vertex_id"`
	X        float32    `yaml:"x_vert"`
	Y        float32    `yaml:"y_vert"`
	Z        float32    `yaml:"z_vert"`
	Enu      float32    `yaml:"enu"`
	NuPDG    int32      `yaml:"nu_pdg"`
	Nu4Mom   [4]float32 `yaml:"nu_4mom,flow"`
	IsCC     bool       `yaml:"is_cc"`
	IsQES    bool       `yaml:"is_qes"`
	IsRES    bool       `yaml:"is_res"`
	IsDIS    bool       `yaml:"is_dis"`
	IsMEC    bool       `yaml:"is_mec"`
	IsCOH    bool       `yaml:"is_coh"`
}

// Link attributes a fraction of a hit's charge to one segment.
type Link struct {
	SegmentID int64
	Fraction  float32
}
