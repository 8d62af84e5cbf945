package config

const (
	defaultRegBinary        = "reg.exe"
	defaultProfileListKey   = `SOFTWARE\Microsoft\Windows NT\CurrentVersion\ProfileList`
	defaultPrincipalPattern = `^S-1-5-21-\d+-\d+-\d+-\d+$`
	defaultMountRoot        = "HKU"
	defaultPrincipalID      = ".DEFAULT"
	defaultMountName        = "WinprepDefaultProfile"
	defaultHivePath         = `C:\Users\Default\NTUSER.DAT`
	defaultUnloadDelayMS    = 1000
	defaultUnloadAttempts   = 3
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	envLogFile              = "WINPREP_LOG_FILE"
	envChecklist            = "WINPREP_CHECKLIST"
	maxUnloadAttempts       = 10
	maxUnloadDelayMS        = 60_000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir(),
			LogDir:   defaultLogDir(),
		},
		Registry: Registry{
			RegBinary:          defaultRegBinary,
			ProfileListKey:     defaultProfileListKey,
			PrincipalPattern:   defaultPrincipalPattern,
			MountRoot:          defaultMountRoot,
			DefaultPrincipalID: defaultPrincipalID,
			DefaultMountName:   defaultMountName,
			DefaultHivePath:    defaultHivePath,
			UnloadDelayMS:      defaultUnloadDelayMS,
			UnloadAttempts:     defaultUnloadAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
