package action_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/teslamotors/vehicle-accessory/pkg/action"
)

var _ = Describe("Commands", func() {
	DescribeTable("parameterless commands",
		func(cmd *action.Command, name string) {
			Expect(cmd).ToNot(BeNil())
			Expect(cmd.Name).To(Equal(name))
			Expect(cmd.Params).To(BeNil())
			Expect(cmd.String()).To(Equal(name))
		},
		Entry("Lock", action.Lock(), "door_lock"),
		Entry("Unlock", action.Unlock(), "door_unlock"),
		Entry("HonkHorn", action.HonkHorn(), "honk_horn"),
		Entry("FlashLights", action.FlashLights(), "flash_lights"),
		Entry("ClimateOn", action.ClimateOn(), "auto_conditioning_start"),
		Entry("ClimateOff", action.ClimateOff(), "auto_conditioning_stop"),
		Entry("ChargeStart", action.ChargeStart(), "charge_start"),
		Entry("ChargeStop", action.ChargeStop(), "charge_stop"),
		Entry("ChargePortOpen", action.ChargePortOpen(), "charge_port_door_open"),
		Entry("ChargePortClose", action.ChargePortClose(), "charge_port_door_close"),
	)

	Describe("ActuateTrunk", func() {
		It("selects the rear trunk", func() {
			cmd := action.OpenTrunk()
			Expect(cmd.Name).To(Equal("actuate_trunk"))
			Expect(cmd.Params).To(HaveKeyWithValue("which_trunk", "rear"))
		})

		It("selects the frunk", func() {
			cmd := action.OpenFrunk()
			Expect(cmd.Params).To(HaveKeyWithValue("which_trunk", "front"))
		})
	})

	Describe("WindowControl", func() {
		It("vents with a null location", func() {
			cmd := action.VentWindows()
			Expect(cmd.Name).To(Equal("window_control"))
			Expect(cmd.Params).To(HaveKeyWithValue("command", "vent"))
			Expect(cmd.Params).To(HaveKeyWithValue("lat", 0.0))
			Expect(cmd.Params).To(HaveKeyWithValue("lon", 0.0))
		})

		It("closes", func() {
			Expect(action.CloseWindows().Params).To(HaveKeyWithValue("command", "close"))
		})
	})

	Describe("ChangeClimateTemp", func() {
		It("sets both zones", func() {
			cmd := action.ChangeClimateTemp(21.5, 20)
			Expect(cmd.Name).To(Equal("set_temps"))
			Expect(cmd.Params).To(HaveKeyWithValue("driver_temp", float32(21.5)))
			Expect(cmd.Params).To(HaveKeyWithValue("passenger_temp", float32(20)))
		})
	})

	DescribeTable("boolean toggles",
		func(build func(bool) *action.Command, name string) {
			Expect(build(true).Name).To(Equal(name))
			Expect(build(true).Params).To(HaveKeyWithValue("on", true))
			Expect(build(false).Params).To(HaveKeyWithValue("on", false))
		},
		Entry("SetSentryMode", action.SetSentryMode, "set_sentry_mode"),
		Entry("SetPreconditioningMax", action.SetPreconditioningMax, "set_preconditioning_max"),
	)
})
