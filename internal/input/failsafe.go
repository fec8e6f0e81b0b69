package input

import (
	"github.com/BryanSouza91/flightcore/internal/arming"
	"github.com/BryanSouza91/flightcore/internal/config"
	"github.com/BryanSouza91/flightcore/internal/logging"
	"github.com/BryanSouza91/flightcore/internal/mathutil"
	"github.com/BryanSouza91/flightcore/internal/rx"
	"github.com/BryanSouza91/flightcore/internal/state"
)

const (
	tenthToUs = 100000

	failsafeDelayMin = 1
	failsafeDelayMax = 200
)

// failsafe advances the link-loss state machine and reports whether the
// link is considered lost, in which case the regular filtering is skipped.
func (c *Conditioner) failsafe(status rx.Status) bool {
	if c.auth != nil && c.auth.IsModeActive(config.ModeFailsafe) {
		c.stage2()
		// the link itself is fine, keep the sticks flowing
		return false
	}

	if status == rx.Received && c.in.ChannelsValid {
		c.idle()
		return false
	}

	if status == rx.Failsafe {
		c.stage2()
		return true
	}

	lossTime := c.clk.Micros() - c.lastGood
	delay := int64(mathutil.Clamp(c.cfg.Failsafe.Delay, failsafeDelayMin, failsafeDelayMax)) * tenthToUs
	if lossTime >= delay {
		c.stage2()
		return true
	}
	if lossTime >= 1*tenthToUs {
		c.stage1()
		return true
	}
	return false
}

func (c *Conditioner) idle() {
	c.stage = 0
	c.setPhase(state.FailsafeIdle)
}

// stage1 freezes every channel on its failsafe value.
func (c *Conditioner) stage1() {
	c.enterStage(1)
	c.setPhase(c.in.Failsafe.Escalate(state.FailsafeRxLossDetected))
	c.in.RxLoss = true
	for ch := 0; ch < c.in.ChannelCount; ch++ {
		c.setInput(ch, float64(c.failsafeValue(ch)), true, true)
	}
}

// stage2 lands: an armed craft is disarmed.
func (c *Conditioner) stage2() {
	c.enterStage(2)
	c.setPhase(c.in.Failsafe.Escalate(state.FailsafeRxLossDetected))
	c.in.RxLoss = true
	c.in.RxFailsafe = true
	if c.auth != nil && c.auth.IsArmed() {
		c.setPhase(c.in.Failsafe.Escalate(state.FailsafeLanded))
		c.auth.Disarm(arming.DisarmFailsafe)
	}
}

func (c *Conditioner) enterStage(stage int) {
	if stage <= c.stage {
		return
	}
	c.stage = stage
	if stage == 1 {
		c.metrics.FailsafeStage("stage1")
	} else {
		c.metrics.FailsafeStage("stage2")
	}
}

func (c *Conditioner) setPhase(p state.FailsafePhase) {
	prev := c.in.Failsafe
	if p == prev {
		return
	}
	c.in.Failsafe = p
	c.metrics.SetFailsafePhase(int(p))
	fields := logging.WithFields(logging.Fields{"from": prev.String(), "to": p.String()})
	if p == state.FailsafeIdle {
		c.log.Info("link recovered", fields)
		return
	}
	c.log.Warn("failsafe", fields)
}
