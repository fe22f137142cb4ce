package sccb

// direction is the R/W bit appended to the device address.
type direction byte

const (
	dirWrite direction = 0
	dirRead  direction = 1
)

func (d direction) String() string {
	if d == dirRead {
		return "read"
	}
	return "write"
}

// phase is one step of a register transaction.
type phase int

const (
	phaseStart     phase = iota // START, wait StartSent
	phaseAddrWrite              // dev<<1|W, wait AddrSent, clear
	phaseRegister               // register address, wait ByteTransferred
	phaseData                   // register value, wait ByteTransferred
	phaseStop                   // STOP
	phaseRestart                // START for the read half, wait StartSent
	phaseAddrRead               // dev<<1|R, wait AddrSent, clear, NACK, STOP
	phaseReceive                // wait RxNotEmpty, read
)

var phaseNames = [...]string{
	phaseStart:     "start",
	phaseAddrWrite: "address (write)",
	phaseRegister:  "register",
	phaseData:      "data",
	phaseStop:      "stop",
	phaseRestart:   "restart",
	phaseAddrRead:  "address (read)",
	phaseReceive:   "receive",
}

func (p phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

var (
	writePhases = []phase{phaseStart, phaseAddrWrite, phaseRegister, phaseData, phaseStop}
	readPhases  = []phase{phaseStart, phaseAddrWrite, phaseRegister, phaseStop, phaseRestart, phaseAddrRead, phaseReceive}
)

// transaction is a single register access. It is created per call and
// consumed synchronously.
type transaction struct {
	dir  direction
	dev  byte
	reg  byte
	data byte // value to write, or value read
}

// phases returns the ordered phases for t.
func (t *transaction) phases() []phase {
	if t.dir == dirRead {
		return readPhases
	}
	return writePhases
}
