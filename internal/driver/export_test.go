package driver

const SetIfNewerScript = setIfNewerScript
