package plant

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/tbrandon/mbserver"

	"github.com/pablodeleon092/CintaTransportadora/internal/config"
)

// Attach wires a conveyor into srv's function handlers.
//
// The model is only touched from inside handlers, which mbserver runs on a
// single goroutine, so it needs no locking. now is the clock used for the
// model (time.Now in production).
func Attach(srv *mbserver.Server, c *Conveyor, addrs config.AddressConfig, log zerolog.Logger, now func() time.Time) {
	if now == nil {
		now = time.Now
	}

	lastSensor := false
	lastLight := false

	refreshSensor := func(s *mbserver.Server) {
		on := c.Sensor(now())
		s.DiscreteInputs[addrs.SensorInput] = bit(on)
		if on != lastSensor {
			lastSensor = on
			log.Info().Uint16("input", addrs.SensorInput).Bool("value", on).Msg("sensor")
		}
	}

	syncCoils := func(s *mbserver.Server) {
		motor := s.Coils[addrs.MotorCoil] != 0
		if motor != c.Motor() {
			c.SetMotor(motor, now())
			log.Info().Uint16("coil", addrs.MotorCoil).Bool("value", motor).Msg("motor")
		}
		light := s.Coils[addrs.LightCoil] != 0
		if light != lastLight {
			lastLight = light
			log.Info().Uint16("coil", addrs.LightCoil).Bool("value", light).Msg("auto-stop light")
		}
	}

	// FC 2
	srv.RegisterFunctionHandler(2,
		func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
			refreshSensor(s)
			return mbserver.ReadDiscreteInputs(s, frame)
		})

	// FC 5
	srv.RegisterFunctionHandler(5,
		func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
			data, exc := mbserver.WriteSingleCoil(s, frame)
			if exc == &mbserver.Success {
				syncCoils(s)
			}
			return data, exc
		})

	// FC 15
	srv.RegisterFunctionHandler(15,
		func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
			data, exc := mbserver.WriteMultipleCoils(s, frame)
			if exc == &mbserver.Success {
				syncCoils(s)
			}
			return data, exc
		})
}

func bit(on bool) byte {
	if on {
		return 1
	}
	return 0
}
